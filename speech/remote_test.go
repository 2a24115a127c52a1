package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/speech/deepgram"
)

func TestRemoteLifecycle(t *testing.T) {
	r := NewRemote(2)

	if err := r.Push(entities.CaptureEvent{Text: "x"}); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("Push before Start error = %v", err)
	}

	events, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyCapturing) {
		t.Errorf("second Start error = %v", err)
	}

	r.Push(entities.CaptureEvent{Text: "Doli"})
	r.Push(entities.CaptureEvent{Text: "Doliprane", IsFinal: true})
	if err := r.Push(entities.CaptureEvent{Text: "overflow"}); !errors.Is(err, ErrBackpressure) {
		t.Errorf("Push on full buffer error = %v", err)
	}

	if err := r.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	var got []entities.CaptureEvent
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) != 2 || got[1].Text != "Doliprane" || !got[1].IsFinal {
		t.Errorf("unexpected events %+v", got)
	}

	if r.active() {
		t.Error("capability still active after End")
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop after End: %v", err)
	}
	if _, err := r.Start(context.Background()); err != nil {
		t.Errorf("restart after End: %v", err)
	}
}

func TestNewFactory(t *testing.T) {
	browser, err := NewFactory(ProviderBrowser, deepgram.Options{})
	if err != nil {
		t.Fatalf("browser factory: %v", err)
	}
	if _, ok := browser().(*Remote); !ok {
		t.Error("browser provider should build a Remote")
	}

	none, err := NewFactory(ProviderNone, deepgram.Options{})
	if err != nil || none() != nil {
		t.Errorf("none provider should build no capability, err=%v", err)
	}

	if _, err := NewFactory(ProviderDeepgram, deepgram.Options{}); err == nil {
		t.Error("deepgram provider without API key should fail")
	}
	dg, err := NewFactory(ProviderDeepgram, deepgram.Options{APIKey: "k"})
	if err != nil {
		t.Fatalf("deepgram factory: %v", err)
	}
	if _, ok := dg().(*deepgram.Capture); !ok {
		t.Error("deepgram provider should build a deepgram capture")
	}

	if _, err := NewFactory("whisper", deepgram.Options{}); err == nil {
		t.Error("unknown provider should fail")
	}
}
