package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/visionstage/diagram-agent/internal/app/analysis"
	"github.com/visionstage/diagram-agent/internal/domain"
)

// uploadLimitBytes caps the request body for diagram uploads. Slightly
// above the domain limit so oversized files get the domain error message
// instead of a truncated-body failure.
const uploadLimitBytes = domain.MaxDiagramBytes + 1<<20

type Server struct {
	svc *analysis.Service
}

func NewServer(svc *analysis.Service) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	// / → embedded chat page
	mux.HandleFunc("/", s.handleIndex)

	// /healthz → liveness
	mux.HandleFunc("/healthz", s.handleHealthz)

	// /sessions → create session (POST)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}           →  GET: session + turns
	// /sessions/{id}/diagram   → POST: upload diagram (multipart)
	// /sessions/{id}/questions → POST: ask about the diagram
	// /sessions/{id}/turns     → DELETE: clear history
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type sessionResponse struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Diagram   *diagramResponse `json:"diagram,omitempty"`
}

type diagramResponse struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

type turnResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question turnResponse `json:"question"`
	Answer   turnResponse `json:"answer"`
}

type getSessionResponse struct {
	Session sessionResponse `json:"session"`
	Turns   []turnResponse  `json:"turns"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id}[/diagram|/questions|/turns]
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, domain.SessionID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 {
		switch {
		case parts[1] == "diagram" && r.Method == http.MethodPost:
			s.handleUploadDiagram(w, r, domain.SessionID(id))
			return
		case parts[1] == "questions" && r.Method == http.MethodPost:
			s.handleAsk(w, r, domain.SessionID(id))
			return
		case parts[1] == "turns" && r.Method == http.MethodDelete:
			s.handleClearTurns(w, r, domain.SessionID(id))
			return
		case parts[1] == "diagram" || parts[1] == "questions" || parts[1] == "turns":
			methodNotAllowed(w)
			return
		}
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.StartSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	session, turns, err := s.svc.Timeline(r.Context(), id, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session: toSessionResponse(session),
		Turns:   toTurnsResponse(turns),
	})
}

func (s *Server) handleUploadDiagram(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadLimitBytes)

	file, header, err := r.FormFile("diagram")
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, domain.ErrDiagramTooLarge)
			return
		}
		badRequest(w, "multipart field 'diagram' is required")
		return
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, domain.ErrDiagramTooLarge)
			return
		}
		badRequest(w, "could not read uploaded file")
		return
	}

	session, err := s.svc.UploadDiagram(r.Context(), id, header.Filename, contents)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		badRequest(w, "question is required")
		return
	}

	out, err := s.svc.Ask(r.Context(), id, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Question: toTurnResponse(out.Question),
		Answer:   toTurnResponse(out.Answer),
	})
}

func (s *Server) handleClearTurns(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if err := s.svc.ClearHistory(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Response helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *domain.Session) sessionResponse {
	resp := sessionResponse{
		ID:        string(s.ID),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Diagram != nil {
		resp.Diagram = &diagramResponse{Name: s.Diagram.Name, Ref: s.Diagram.Ref}
	}
	return resp
}

func toTurnResponse(t *domain.Turn) turnResponse {
	return turnResponse{
		ID:        string(t.ID),
		SessionID: string(t.SessionID),
		Author:    string(t.Author),
		Text:      t.Text,
		CreatedAt: t.CreatedAt,
	}
}

func toTurnsResponse(turns []*domain.Turn) []turnResponse {
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, toTurnResponse(t))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Upstream
// failures (stage writes, completion calls) come back as 502 with the
// message passed through so the user can see what the service said.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeErrorJSON(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrUnsupportedFormat):
		writeErrorJSON(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrDiagramTooLarge):
		writeErrorJSON(w, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, domain.ErrNoDiagram):
		writeErrorJSON(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrUpload), errors.Is(err, domain.ErrCompletion):
		writeErrorJSON(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

func writeErrorJSON(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// isBodyTooLarge reports whether err came from the MaxBytesReader cap, so
// an oversized body maps to the same status as an oversized diagram.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
