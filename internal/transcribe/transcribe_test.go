package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload-1.m4a")
	if err := os.WriteFile(path, []byte("fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotFields map[string]string
	var gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		if fh := r.MultipartForm.File["file"]; len(fh) == 1 {
			gotFile = fh[0].Filename
		}
		w.Write([]byte(`{"text":" hello team ","language":"en","duration":12.5}`))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "large-v3", time.Second)
	resp, err := wc.Transcribe(context.Background(), writeAudio(t), TranscribeOpts{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != " hello team " || resp.Language != "en" || resp.Duration != 12.5 {
		t.Errorf("resp = %+v", resp)
	}
	if gotFile != "upload-1.m4a" {
		t.Errorf("file field = %q", gotFile)
	}
	if gotFields["model"] != "large-v3" || gotFields["language"] != "en" || gotFields["response_format"] != "verbose_json" {
		t.Errorf("fields = %v", gotFields)
	}
	if _, ok := gotFields["prompt"]; ok {
		t.Error("empty prompt should not be sent")
	}
}

func TestWhisperClient_NoModelOmitsField(t *testing.T) {
	var hasModel bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		_, hasModel = r.MultipartForm.Value["model"]
		w.Write([]byte(`{"text":"x"}`))
	}))
	defer srv.Close()

	if _, err := NewWhisperClient(srv.URL, "", time.Second).Transcribe(context.Background(), writeAudio(t), TranscribeOpts{}); err != nil {
		t.Fatal(err)
	}
	if hasModel {
		t.Error("model field sent without a configured model")
	}
}

func TestWhisperClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "", time.Second)
	_, err := wc.Transcribe(context.Background(), writeAudio(t), TranscribeOpts{})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("err = %v, want status 500", err)
	}

	_, err = wc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), TranscribeOpts{})
	if err == nil || !strings.Contains(err.Error(), "open audio file") {
		t.Errorf("err = %v, want open error", err)
	}
}

func TestWhisperClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewWhisperClient(srv.URL, "", time.Second).Transcribe(context.Background(), writeAudio(t), TranscribeOpts{})
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Errorf("err = %v", err)
	}
}

func TestDeepInfraClient_Transcribe(t *testing.T) {
	var gotPath, gotAuth string
	var hasAudio bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		r.ParseMultipartForm(1 << 20)
		_, hasAudio = r.MultipartForm.File["audio"]
		w.Write([]byte(`{"text":"bonjour","language":"fr"}`))
	}))
	defer srv.Close()

	di := NewDeepInfraClient("key-123", "", time.Second)
	di.baseURL = srv.URL + "/v1/inference/"
	if di.Model() != "openai/whisper-large-v3-turbo" {
		t.Errorf("default model = %q", di.Model())
	}

	resp, err := di.Transcribe(context.Background(), writeAudio(t), TranscribeOpts{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "bonjour" {
		t.Errorf("text = %q", resp.Text)
	}
	if gotPath != "/v1/inference/openai/whisper-large-v3-turbo" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer key-123" {
		t.Errorf("auth = %q", gotAuth)
	}
	if !hasAudio {
		t.Error("audio form field missing")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		opts     ProviderOptions
		wantName string
		wantErr  bool
	}{
		{"default_is_whisper", ProviderOptions{WhisperURL: "http://localhost:9000"}, "whisper", false},
		{"whisper_without_url", ProviderOptions{Provider: "whisper"}, "", true},
		{"deepinfra", ProviderOptions{Provider: "deepinfra", DeepInfraKey: "k"}, "deepinfra", false},
		{"deepinfra_without_key", ProviderOptions{Provider: "deepinfra"}, "", true},
		{"unknown", ProviderOptions{Provider: "vosk"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}

func TestPreprocess_FallsBackWithoutSox(t *testing.T) {
	if CheckSox() {
		t.Skip("sox installed; fallback path not reachable")
	}
	in := writeAudio(t)
	out, cleanup, err := Preprocess(context.Background(), in)
	defer cleanup()
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if out != in {
		t.Errorf("out = %q, want original path", out)
	}
}

func TestPreprocess_InvalidInputKeepsOriginal(t *testing.T) {
	if !CheckSox() {
		t.Skip("sox not installed")
	}
	in := writeAudio(t) // not real audio, sox will reject it
	out, cleanup, err := Preprocess(context.Background(), in)
	defer cleanup()
	if err == nil {
		t.Fatal("expected sox error for invalid audio")
	}
	if out != in {
		t.Errorf("out = %q, want original path on failure", out)
	}
}
