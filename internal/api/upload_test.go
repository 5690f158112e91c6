package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

type mockSpool struct {
	lastFilename string
	lastData     []byte
	path         string
	err          error
}

func (m *mockSpool) Save(r io.Reader, filename string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.lastFilename = filename
	m.lastData, _ = io.ReadAll(r)
	if m.path == "" {
		return "/tmp/upload-test.m4a", nil
	}
	return m.path, nil
}

type mockSubmitter struct {
	calls        int
	lastPath     string
	lastFilename string
	id           string
	err          error
}

func (m *mockSubmitter) Submit(audioPath, filename string) (string, error) {
	m.calls++
	m.lastPath = audioPath
	m.lastFilename = filename
	if m.err != nil {
		return "", m.err
	}
	return m.id, nil
}

func buildMultipartForm(t *testing.T, fileField string, fileData []byte, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("note", "weekly sync")
	if fileData != nil && fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(fileData)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func doUpload(t *testing.T, h *UploadHandler, body *bytes.Buffer, ct string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/upload-audio/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	return rec
}

func TestUpload_Success(t *testing.T) {
	spool := &mockSpool{path: "/spool/upload-1.m4a"}
	sub := &mockSubmitter{id: "task-123"}
	h := NewUploadHandler(spool, sub, 0, zerolog.Nop())

	body, ct := buildMultipartForm(t, "file", []byte("fake-audio-data"), "standup.m4a")
	rec := doUpload(t, h, body, ct)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TaskID != "task-123" {
		t.Errorf("task_id = %q", resp.TaskID)
	}
	if string(spool.lastData) != "fake-audio-data" || spool.lastFilename != "standup.m4a" {
		t.Errorf("spool got %q / %q", spool.lastData, spool.lastFilename)
	}
	if sub.lastPath != "/spool/upload-1.m4a" || sub.lastFilename != "standup.m4a" {
		t.Errorf("submit got %q / %q", sub.lastPath, sub.lastFilename)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	sub := &mockSubmitter{id: "x"}
	h := NewUploadHandler(&mockSpool{}, sub, 0, zerolog.Nop())

	body, ct := buildMultipartForm(t, "", nil, "")
	rec := doUpload(t, h, body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
	if sub.calls != 0 {
		t.Error("no job should be submitted without a file")
	}
}

func TestUpload_WrongField(t *testing.T) {
	h := NewUploadHandler(&mockSpool{}, &mockSubmitter{}, 0, zerolog.Nop())
	body, ct := buildMultipartForm(t, "audio", []byte("x"), "a.mp3")
	if rec := doUpload(t, h, body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	h := NewUploadHandler(&mockSpool{}, &mockSubmitter{}, 0, zerolog.Nop())
	rec := doUpload(t, h, bytes.NewBufferString(`{"file":"x"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	sub := &mockSubmitter{id: "x"}
	h := NewUploadHandler(&mockSpool{}, sub, 1024, zerolog.Nop())

	body, ct := buildMultipartForm(t, "file", bytes.Repeat([]byte("a"), 4096), "big.wav")
	rec := doUpload(t, h, body, ct)
	if rec.Code == http.StatusOK {
		t.Fatal("oversized upload should be rejected")
	}
	if sub.calls != 0 {
		t.Error("no job should be submitted for a rejected upload")
	}
}

func TestUpload_SpoolError(t *testing.T) {
	sub := &mockSubmitter{id: "x"}
	h := NewUploadHandler(&mockSpool{err: errors.New("disk full")}, sub, 0, zerolog.Nop())

	body, ct := buildMultipartForm(t, "file", []byte("x"), "a.mp3")
	rec := doUpload(t, h, body, ct)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
	if sub.calls != 0 {
		t.Error("submit should not be called when spooling fails")
	}
}

func TestUpload_SubmitError(t *testing.T) {
	h := NewUploadHandler(&mockSpool{}, &mockSubmitter{err: errors.New("duplicate")}, 0, zerolog.Nop())
	body, ct := buildMultipartForm(t, "file", []byte("x"), "a.mp3")
	if rec := doUpload(t, h, body, ct); rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}
