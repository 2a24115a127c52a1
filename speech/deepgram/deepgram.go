// Package deepgram streams audio to Deepgram's live transcription API and
// turns its results into capture events.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/gorilla/websocket"
)

const (
	DefaultURL          = "wss://api.deepgram.com/v1/listen"
	DefaultModel        = "nova-2"
	DefaultLanguage     = "fr"
	DefaultKeepAlive    = 5 * time.Second
	DefaultFlushTimeout = 2 * time.Second
	handshakeTimeout    = 10 * time.Second
	writeTimeout        = 5 * time.Second
)

var (
	ErrAlreadyCapturing = errors.New("deepgram stream already open")
	ErrNotCapturing     = errors.New("no deepgram stream open")
)

var (
	_ interfaces.SpeechCapture = (*Capture)(nil)
	_ interfaces.AudioSink     = (*Capture)(nil)
)

// Options configures the live transcription stream. Encoding and SampleRate
// may be left empty for containerised audio such as webm/opus. FlushTimeout
// bounds how long Stop waits for the results Deepgram flushes on CloseStream.
type Options struct {
	APIKey       string
	URL          string
	Model        string
	Language     string
	Encoding     string
	SampleRate   int
	KeepAlive    time.Duration
	FlushTimeout time.Duration
}

type result struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Capture is one Deepgram stream per recording.
type Capture struct {
	opts   Options
	dialer *websocket.Dialer

	mu  sync.Mutex
	cur *stream

	writeMu sync.Mutex
}

type stream struct {
	conn     *websocket.Conn
	quit     chan struct{} // stops the keep-alive once Stop began or the stream ended
	finished chan struct{} // closed when the read loop has returned
	abandon  chan struct{} // closed when Stop gave up waiting for the flush
}

// New returns an idle capture, filling defaults for empty options.
func New(opts Options) *Capture {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	return &Capture{
		opts:   opts,
		dialer: &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: handshakeTimeout},
	}
}

func (c *Capture) endpoint() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram url: %w", err)
	}
	q := u.Query()
	q.Set("model", c.opts.Model)
	q.Set("language", c.opts.Language)
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if c.opts.Encoding != "" {
		q.Set("encoding", c.opts.Encoding)
	}
	if c.opts.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(c.opts.SampleRate))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Start opens a stream. Transcripts are delivered on the returned channel,
// which is closed when the stream ends for any reason.
func (c *Capture) Start(ctx context.Context) (<-chan entities.CaptureEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil {
		return nil, ErrAlreadyCapturing
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}
	header := http.Header{"Authorization": {"Token " + c.opts.APIKey}}
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("deepgram dial failed: %w", err)
	}

	st := &stream{
		conn:     conn,
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
		abandon:  make(chan struct{}),
	}
	events := make(chan entities.CaptureEvent)
	c.cur = st
	go c.readLoop(st, events)
	go c.keepAlive(st)

	logging.Debug("Deepgram stream opened", "model", c.opts.Model, "language", c.opts.Language)
	return events, nil
}

func (c *Capture) readLoop(st *stream, events chan<- entities.CaptureEvent) {
	defer close(st.finished)
	defer close(events)
	defer c.release(st)

	for {
		_, message, err := st.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				logging.Debug("Deepgram stream ended", "error", err)
			}
			return
		}

		var r result
		if err := json.Unmarshal(message, &r); err != nil {
			logging.Warn("Unparseable deepgram message", "error", err)
			continue
		}
		if r.Type != "Results" || len(r.Channel.Alternatives) == 0 {
			continue
		}
		text := r.Channel.Alternatives[0].Transcript
		if text == "" {
			continue
		}
		select {
		case events <- entities.CaptureEvent{Text: text, IsFinal: r.IsFinal}:
		case <-st.abandon:
			return
		}
	}
}

// keepAlive stops Deepgram from closing the stream during pauses in speech.
func (c *Capture) keepAlive(st *stream) {
	ticker := time.NewTicker(c.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-st.quit:
			return
		case <-ticker.C:
			if err := c.write(st.conn, websocket.TextMessage, []byte(`{"type":"KeepAlive"}`)); err != nil {
				return
			}
		}
	}
}

// release forgets st once its read loop has ended.
func (c *Capture) release(st *stream) {
	c.mu.Lock()
	if c.cur == st {
		close(st.quit)
		c.cur = nil
	}
	c.mu.Unlock()
	st.conn.Close()
}

// WriteAudio forwards one chunk of audio to the open stream.
func (c *Capture) WriteAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	c.mu.Lock()
	st := c.cur
	c.mu.Unlock()

	if st == nil {
		return ErrNotCapturing
	}
	return c.write(st.conn, websocket.BinaryMessage, chunk)
}

// Stop asks Deepgram to close the stream and waits, up to FlushTimeout, for
// the results it flushes in response to reach the event channel. Stopping an
// idle capture is a no-op. The connection may already be gone when the remote
// end hung up, so close errors are only logged.
func (c *Capture) Stop() error {
	c.mu.Lock()
	st := c.cur
	c.cur = nil
	c.mu.Unlock()

	if st == nil {
		return nil
	}
	close(st.quit)

	if err := c.write(st.conn, websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		logging.Debug("Deepgram CloseStream not sent", "error", err)
	}

	timer := time.NewTimer(c.opts.FlushTimeout)
	defer timer.Stop()
	select {
	case <-st.finished:
	case <-timer.C:
		logging.Warn("Deepgram stream not flushed before timeout", "timeout", c.opts.FlushTimeout.String())
		close(st.abandon)
	}

	if err := st.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logging.Debug("Deepgram connection close failed", "error", err)
	}
	logging.Debug("Deepgram stream closed")
	return nil
}

func (c *Capture) write(conn *websocket.Conn, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(messageType, data)
}
