package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every known variable so tests see defaults only
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range GetEnvVars() {
		t.Setenv(key, "")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXTRACTION_API_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" || cfg.Address != "127.0.0.1" || cfg.Env != EnvDevelopment || cfg.LogLevel != "info" {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.LogDir != "logs" || cfg.LogRetentionWeeks != 4 || cfg.MaxLogFileSize != 100*1024*1024 {
		t.Errorf("unexpected logging defaults: %+v", cfg)
	}
	if cfg.ExtractionModel != "gemini-2.5-flash" || cfg.ExtractionTimeout != 30*time.Second {
		t.Errorf("unexpected extraction defaults: %+v", cfg)
	}
	if cfg.ExtractionRate != 1 || cfg.ExtractionBurst != 5 {
		t.Errorf("unexpected extraction budget: rate=%g burst=%d", cfg.ExtractionRate, cfg.ExtractionBurst)
	}
	if cfg.SpeechProvider != "browser" || cfg.SpeechLanguage != "fr" {
		t.Errorf("unexpected speech defaults: %+v", cfg)
	}
	if cfg.WorkspaceIdleTTL != 2*time.Hour || cfg.WorkspaceReapInterval != 5*time.Minute {
		t.Errorf("unexpected workspace defaults: %+v", cfg)
	}
}

func TestLoadValidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8002")
	t.Setenv("ENV", "PROD")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EXTRACTION_API_KEY", "key")
	t.Setenv("EXTRACTION_TIMEOUT", "45s")
	t.Setenv("EXTRACTION_RATE", "0.5")
	t.Setenv("SPEECH_PROVIDER", "deepgram")
	t.Setenv("DEEPGRAM_API_KEY", "dg")
	t.Setenv("DEEPGRAM_SAMPLE_RATE", "16000")
	t.Setenv("WORKSPACE_IDLE_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" || cfg.Env != EnvProduction || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ExtractionTimeout != 45*time.Second || cfg.ExtractionRate != 0.5 {
		t.Errorf("unexpected extraction config: %+v", cfg)
	}
	if cfg.SpeechProvider != "deepgram" || cfg.DeepgramSampleRate != 16000 {
		t.Errorf("unexpected speech config: %+v", cfg)
	}
	if cfg.WorkspaceIdleTTL != 30*time.Minute {
		t.Errorf("unexpected idle ttl %s", cfg.WorkspaceIdleTTL)
	}
}

func TestLoadTestEnvNeedsNoAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "test")

	if _, err := Load(); err != nil {
		t.Errorf("test environment should not require an API key: %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	testCases := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{"port not a number", map[string]string{"PORT": "abc"}, "PORT must be a valid number"},
		{"port out of range", map[string]string{"PORT": "65536"}, "PORT must be between 1 and 65535"},
		{"privileged port", map[string]string{"PORT": "80"}, "PORT 80 is privileged"},
		{"bad address", map[string]string{"ADDRESS": "not-an-ip"}, "ADDRESS must be a valid IP"},
		{"public address", map[string]string{"ADDRESS": "8.8.8.8"}, "is a public IP"},
		{"unknown env", map[string]string{"ENV": "qa"}, "ENV must be one of"},
		{"unknown log level", map[string]string{"LOG_LEVEL": "trace"}, "LOG_LEVEL must be one of"},
		{"retention too long", map[string]string{"LOG_RETENTION_WEEKS": "60"}, "LOG_RETENTION_WEEKS is too large"},
		{"log file too small", map[string]string{"MAX_LOG_FILE_SIZE": "1000"}, "MAX_LOG_FILE_SIZE is too small"},
		{"request body too large", map[string]string{"MAX_REQUEST_BODY": "209715200"}, "MAX_REQUEST_BODY is too large"},
		{"missing api key", map[string]string{"ENV": "prod", "EXTRACTION_API_KEY": ""}, "missing EXTRACTION_API_KEY"},
		{"bad base url", map[string]string{"EXTRACTION_BASE_URL": "ftp://example.org"}, "invalid EXTRACTION_BASE_URL"},
		{"timeout too short", map[string]string{"EXTRACTION_TIMEOUT": "10ms"}, "invalid EXTRACTION_TIMEOUT"},
		{"negative rate", map[string]string{"EXTRACTION_RATE": "-1"}, "invalid EXTRACTION_RATE"},
		{"zero burst", map[string]string{"EXTRACTION_BURST": "0"}, "invalid EXTRACTION_BURST"},
		{"unknown provider", map[string]string{"SPEECH_PROVIDER": "whisper"}, "invalid SPEECH_PROVIDER"},
		{"deepgram without key", map[string]string{"SPEECH_PROVIDER": "deepgram"}, "missing DEEPGRAM_API_KEY"},
		{"deepgram bad url", map[string]string{"SPEECH_PROVIDER": "deepgram", "DEEPGRAM_API_KEY": "k", "DEEPGRAM_URL": "https://api.deepgram.com"}, "invalid DEEPGRAM_URL"},
		{"idle ttl too short", map[string]string{"WORKSPACE_IDLE_TTL": "10s"}, "invalid WORKSPACE_IDLE_TTL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("EXTRACTION_API_KEY", "key")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error containing %q", tc.expected)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestUnparseableValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXTRACTION_API_KEY", "key")
	t.Setenv("EXTRACTION_TIMEOUT", "soon")
	t.Setenv("LOG_RETENTION_WEEKS", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.ExtractionTimeout != 30*time.Second || cfg.LogRetentionWeeks != 4 {
		t.Errorf("expected defaults, got timeout=%s retention=%d", cfg.ExtractionTimeout, cfg.LogRetentionWeeks)
	}
}

func TestSetEnvVarsListsNamesOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DEEPGRAM_API_KEY", "dg-secret")

	set := SetEnvVars()
	if len(set) != 2 || set[0] != "PORT" || set[1] != "DEEPGRAM_API_KEY" {
		t.Errorf("SetEnvVars() = %v, want [PORT DEEPGRAM_API_KEY]", set)
	}
	for _, name := range set {
		if strings.Contains(name, "dg-secret") {
			t.Errorf("value leaked in %q", name)
		}
	}
}
