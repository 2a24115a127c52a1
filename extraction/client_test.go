package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/sashabaranov/go-openai"
)

// fakeService answers chat completions with content, or with status when non-200.
func fakeService(t *testing.T, status int, content string, calls *atomic.Int32, lastPrompt *atomic.Value) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req struct {
			Messages       []openai.ChatCompletionMessage `json:"messages"`
			ResponseFormat *struct {
				Type openai.ChatCompletionResponseFormatType `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONSchema {
			t.Errorf("expected json_schema response format")
		}
		if len(req.Messages) == 1 && lastPrompt != nil {
			lastPrompt.Store(req.Messages[0].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  DefaultModel,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
}

func newTestClient(url string) *Client {
	return NewClient(Options{APIKey: "test-key", BaseURL: url + "/v1beta/openai/"})
}

func TestExtractReplaceAll(t *testing.T) {
	var calls atomic.Int32
	var prompt atomic.Value
	srv := fakeService(t, http.StatusOK,
		`{"action":"REPLACE_ALL","patientName":"Jean Dupont","medications":[{"name":"DOLIPRANE","dosage":"1g 3 fois par jour"}]}`,
		&calls, &prompt)
	defer srv.Close()

	client := newTestClient(srv.URL)
	transcript := "Patient Jean Dupont, Doliprane 1g 3 fois par jour"
	result, err := client.Extract(context.Background(), transcript)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if result.Action != entities.ActionReplaceAll || result.PatientName != "Jean Dupont" {
		t.Errorf("unexpected result %+v", result)
	}
	if len(result.Medications) != 1 || result.Medications[0].Name != "DOLIPRANE" {
		t.Errorf("unexpected medications %+v", result.Medications)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one call, got %d", calls.Load())
	}
	if p, _ := prompt.Load().(string); !strings.Contains(p, transcript) {
		t.Errorf("prompt does not embed the transcript: %q", p)
	}
}

func TestExtractEmptyTranscriptMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := fakeService(t, http.StatusOK, `{}`, &calls, nil)
	defer srv.Close()

	client := newTestClient(srv.URL)
	for _, transcript := range []string{"", "   ", "\n\t"} {
		if _, err := client.Extract(context.Background(), transcript); !errors.Is(err, entities.ErrInvalidInput) {
			t.Errorf("Extract(%q) error = %v, want ErrInvalidInput", transcript, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("expected no calls, got %d", calls.Load())
	}
}

func TestExtractServiceErrorIsSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := fakeService(t, http.StatusInternalServerError, "", &calls, nil)
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Extract(context.Background(), "Doliprane")
	if !errors.Is(err, entities.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls.Load())
	}
}

func TestExtractRejectsInvalidContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "voici l'ordonnance"},
		{"missing action", `{"medications":[{"name":"A","dosage":"x"}]}`},
		{"unknown action", `{"action":"DELETE","medications":[{"name":"A","dosage":"x"}]}`},
		{"empty medications", `{"action":"REPLACE_ALL","patientName":"X","medications":[]}`},
		{"missing dosage", `{"action":"ADD_MEDICATION","medications":[{"name":"A"}]}`},
		{"blank name", `{"action":"ADD_MEDICATION","medications":[{"name":"  ","dosage":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := fakeService(t, http.StatusOK, tt.content, &calls, nil)
			defer srv.Close()

			_, err := newTestClient(srv.URL).Extract(context.Background(), "Doliprane")
			if !errors.Is(err, entities.ErrExtractionFailed) {
				t.Errorf("expected ErrExtractionFailed, got %v", err)
			}
		})
	}
}

func TestExtractRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := fakeService(t, http.StatusOK,
		`{"action":"ADD_MEDICATION","medications":[{"name":"SPASFON","dosage":""}]}`, &calls, nil)
	defer srv.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: srv.URL, Rate: 0.001, Burst: 1})

	if _, err := client.Extract(context.Background(), "ajouter Spasfon"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := client.Extract(context.Background(), "ajouter Spasfon")
	if !errors.Is(err, ErrRateLimited) || !errors.Is(err, entities.ErrExtractionFailed) {
		t.Errorf("expected rate limited extraction failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("rate limited call reached the service")
	}
}

func TestParseTrimsAndAllowsEmptyDosage(t *testing.T) {
	result, err := Parse(`{"action":"ADD_MEDICATION","medications":[{"name":" SPASFON ","dosage":" "}]}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.Medications[0].Name != "SPASFON" || result.Medications[0].Dosage != "" {
		t.Errorf("unexpected medication %+v", result.Medications[0])
	}
	if result.PatientName != "" {
		t.Errorf("expected no patient name, got %q", result.PatientName)
	}
}
