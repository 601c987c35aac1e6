// Package server exposes the farming advisor over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/agrigraph/advisor"
	"github.com/smallnest/agrigraph/history"
	"github.com/smallnest/agrigraph/log"
	"github.com/smallnest/agrigraph/report"
)

// Advisor is the slice of the pipeline the server needs.
type Advisor interface {
	Invoke(ctx context.Context, question []advisor.MessagePart) (advisor.Result, error)
}

// Server wires the advisor pipeline and the history store behind HTTP
// handlers.
type Server struct {
	cfg      Config
	pipeline Advisor
	store    history.Store
	logger   log.Logger
}

// NewServer builds a server around an already-constructed pipeline and
// history store.
func NewServer(cfg Config, pipeline Advisor, store history.Store, logger log.Logger) *Server {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		store:    store,
		logger:   logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleSessionMessages)
	mux.HandleFunc("POST /api/reports", s.handleGenerateReport)
	mux.HandleFunc("GET /api/reports", s.handleListReports)
	mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	return mux
}

// Start blocks serving HTTP on the configured address.
func (s *Server) Start() error {
	addr := s.cfg.ServerHost + ":" + s.cfg.ServerPort
	s.logger.Info("starting agrigraph server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// ChatRequest is one turn of conversation. SessionID is optional; a missing
// id starts a new session.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	ImageURL  string `json:"image_url,omitempty"`
}

// ChatResponse carries the answer and the session it belongs to.
type ChatResponse struct {
	SessionID string         `json:"session_id"`
	Answer    string         `json:"answer"`
	Result    advisor.Result `json:"result"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "message or image_url is required")
		return
	}

	ctx := r.Context()
	session, err := s.resolveSession(ctx, req.SessionID, req.Message)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	userMsg := history.NewMessage(session.ID, history.RoleUser, req.Message)
	userMsg.ImageURL = req.ImageURL
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		s.respondStoreError(w, err)
		return
	}

	var question []advisor.MessagePart
	if req.Message != "" {
		question = append(question, advisor.TextPart(req.Message))
	}
	if req.ImageURL != "" {
		question = append(question, advisor.ImagePart(req.ImageURL))
	}

	result, err := s.pipeline.Invoke(ctx, question)
	if err != nil {
		s.logger.Error("pipeline invocation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate an answer")
		return
	}

	assistantMsg := history.NewMessage(session.ID, history.RoleAssistant, result.Generation)
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		s.respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: session.ID.String(),
		Answer:    result.Generation,
		Result:    result,
	})
}

// resolveSession loads the referenced session or starts a fresh one titled
// after the first message.
func (s *Server) resolveSession(ctx context.Context, rawID, message string) (*history.Session, error) {
	if rawID == "" {
		return s.store.CreateSession(ctx, sessionTitle(message))
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", rawID, history.ErrNotFound)
	}
	return s.store.GetSession(ctx, id)
}

func sessionTitle(message string) string {
	title := strings.TrimSpace(message)
	if title == "" {
		title = "Image question"
	}
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	return title
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	session, err := s.store.CreateSession(r.Context(), req.Title)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*history.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if _, err := s.store.GetSession(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	messages, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if messages == nil {
		messages = []*history.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// ReportResponse carries a generated report in both source and rendered
// form.
type ReportResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
	HTML      string `json:"html"`
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req report.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IsEmpty() {
		writeError(w, http.StatusBadRequest, "Please provide some information or a query to generate a report")
		return
	}

	ctx := r.Context()
	query := report.BuildQuery(req)

	result, err := s.pipeline.Invoke(ctx, advisor.TextQuestion(query))
	if err != nil {
		s.logger.Error("report generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	title := strings.TrimSpace(req.Query)
	if title == "" {
		title = "Farming report"
	}
	session, err := s.store.CreateSession(ctx, sessionTitle(title))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	rec := &history.Report{
		ID:        uuid.New(),
		SessionID: session.ID,
		Title:     sessionTitle(title),
		Markdown:  result.Generation,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveReport(ctx, rec); err != nil {
		s.respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReportResponse{
		ID:        rec.ID.String(),
		SessionID: rec.SessionID.String(),
		Title:     rec.Title,
		Markdown:  rec.Markdown,
		HTML:      report.RenderHTML(rec.Markdown),
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "session_id query parameter is required")
		return
	}
	reports, err := s.store.ListReports(r.Context(), sessionID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if reports == nil {
		reports = []*history.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	rec, err := s.store.GetReport(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{
		ID:        rec.ID.String(),
		SessionID: rec.SessionID.String(),
		Title:     rec.Title,
		Markdown:  rec.Markdown,
		HTML:      report.RenderHTML(rec.Markdown),
	})
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.logger.Error("history store error: %v", err)
	writeError(w, http.StatusInternalServerError, "storage error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
