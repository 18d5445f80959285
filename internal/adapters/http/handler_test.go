package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/visionstage/diagram-agent/internal/adapters/http"
	"github.com/visionstage/diagram-agent/internal/adapters/snowflake"
	"github.com/visionstage/diagram-agent/internal/adapters/storage/memory"
	"github.com/visionstage/diagram-agent/internal/app/analysis"
	"github.com/visionstage/diagram-agent/internal/domain"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	svc := analysis.NewService(
		snowflake.NewMockStage(),
		snowflake.NewMockCompleter(),
		memory.NewSessionStore(),
		memory.NewTurnStore(),
	)
	return httpadapter.NewServer(svc)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func createSession(t *testing.T, srv http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding session response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("expected session id, got empty")
	}
	return resp.ID
}

func uploadDiagram(t *testing.T, srv http.Handler, sessionID, filename string, contents []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("diagram", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(contents); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/diagram", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html content type, got %s", ct)
	}
}

func TestUploadAndAskFlow(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	w := uploadDiagram(t, srv, sessionID, "topology.png", pngBytes(t))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	body := []byte(`{"question":"What devices are shown?"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/questions", bytes.NewReader(body))
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("ask: expected 200, got %d, body=%s", w2.Code, w2.Body.String())
	}

	var resp struct {
		Question struct {
			Text string `json:"text"`
		} `json:"question"`
		Answer struct {
			Text string `json:"text"`
		} `json:"answer"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Question.Text != "What devices are shown?" || resp.Answer.Text == "" {
		t.Fatalf("unexpected turn pair: %+v", resp)
	}

	// Timeline shows exactly the recorded pair.
	req = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID, nil)
	w3 := httptest.NewRecorder()
	srv.ServeHTTP(w3, req)
	if w3.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w3.Code)
	}
	var timeline struct {
		Turns []struct {
			Author string `json:"author"`
		} `json:"turns"`
	}
	if err := json.Unmarshal(w3.Body.Bytes(), &timeline); err != nil {
		t.Fatal(err)
	}
	if len(timeline.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(timeline.Turns))
	}
}

func TestAskBeforeUploadIsConflict(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	body := []byte(`{"question":"What devices are shown?"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/questions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestUploadWrongFormatIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	w := uploadDiagram(t, srv, sessionID, "diagram.vsdx", []byte("not an image"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestUploadOversizedBodyIsEntityTooLarge(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	// Well past the body cap, so the limit trips during multipart parsing.
	big := make([]byte, domain.MaxDiagramBytes+2<<20)
	w := uploadDiagram(t, srv, sessionID, "huge.png", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/does-not-exist", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestClearTurns(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	if w := uploadDiagram(t, srv, sessionID, "topology.png", pngBytes(t)); w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d", w.Code)
	}

	body := []byte(`{"question":"What devices are shown?"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/questions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("ask failed: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/sessions/"+sessionID+"/turns", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	var timeline struct {
		Turns []any `json:"turns"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &timeline); err != nil {
		t.Fatal(err)
	}
	if len(timeline.Turns) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(timeline.Turns))
	}
}
