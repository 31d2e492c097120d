package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PabloGalante/quester-agent/internal/app/conversation"
	"github.com/PabloGalante/quester-agent/internal/app/drafts"
	"github.com/PabloGalante/quester-agent/internal/domain"
	"github.com/PabloGalante/quester-agent/internal/observability"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc    *conversation.Service
	drafts *drafts.Service
}

func NewServer(svc *conversation.Service, draftSvc *drafts.Service) http.Handler {
	s := &Server{svc: svc, drafts: draftSvc}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, withRequestID, withLogging, withCORS)

	r.Get("/healthz", s.handleHealth)
	r.Post("/chat", s.handleChat)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)
		r.Get("/latest", s.handleLatestSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Put("/", s.handleSaveSession)
			r.Post("/messages", s.handleSendMessage)
			r.Post("/topics", s.handleAddTopic)
			r.Post("/topics/{topicID}/activate", s.handleActivateTopic)
			r.Post("/topics/{topicID}/complete", s.handleCompleteTopic)
			r.Put("/preferences", s.handleUpdatePreferences)

			r.Get("/drafts", s.handleListDrafts)
			r.Get("/drafts/{topicID}", s.handleGetDraft)
			r.Delete("/drafts/{topicID}", s.handleDeleteDraft)
			r.Get("/drafts/{topicID}/task", s.handleTaskStatus)
		})
	})

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type createSessionResponse struct {
	Session *domain.Session `json:"session"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage  domain.Message       `json:"userMessage"`
	AgentMessage domain.Message       `json:"agentMessage"`
	TopicUpdates *domain.TopicUpdates `json:"topicUpdates,omitempty"`
	Session      *domain.Session      `json:"session"`
}

type addTopicRequest struct {
	Title string `json:"title"`
}

// ─────────────────────────────────────────────
// Chat
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req conversation.ChatInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		badRequest(w, "messages are required")
		return
	}

	out, err := s.svc.Chat(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ─────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	out, err := s.svc.StartSession(r.Context(), conversation.StartSessionInput{Title: req.Title})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{Session: out.Session})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListSessions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleLatestSession answers JSON null when no session exists yet.
func (s *Server) handleLatestSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.LatestSession(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.GetSession(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var session domain.Session
	if !decodeJSON(w, r, &session) {
		return
	}
	id := sessionID(r)
	if session.ID == "" {
		session.ID = id
	}
	if session.ID != id {
		badRequest(w, "session id does not match the path")
		return
	}

	saved, err := s.svc.SaveSession(r.Context(), &session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID(r),
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:  out.UserMessage,
		AgentMessage: out.AgentMessage,
		TopicUpdates: out.TopicUpdates,
		Session:      out.Session,
	})
}

// ─────────────────────────────────────────────
// Topics and preferences
// ─────────────────────────────────────────────

func (s *Server) handleAddTopic(w http.ResponseWriter, r *http.Request) {
	var req addTopicRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	topic, err := s.svc.AddTopic(r.Context(), sessionID(r), req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

func (s *Server) handleActivateTopic(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.ActivateTopic(r.Context(), sessionID(r), topicID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCompleteTopic(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.CompleteTopic(r.Context(), sessionID(r), topicID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs domain.Preferences
	if !decodeJSON(w, r, &prefs) {
		return
	}
	session, err := s.svc.UpdatePreferences(r.Context(), sessionID(r), prefs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ─────────────────────────────────────────────
// Drafts
// ─────────────────────────────────────────────

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	list, err := s.drafts.ListDrafts(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	out, err := s.drafts.GetDraft(r.Context(), sessionID(r), topicID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.drafts.DeleteDraft(r.Context(), sessionID(r), topicID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.drafts.TaskStatus(r.Context(), sessionID(r), topicID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func sessionID(r *http.Request) domain.SessionID {
	return domain.SessionID(chi.URLParam(r, "sessionID"))
}

func topicID(r *http.Request) domain.TopicID {
	return domain.TopicID(chi.URLParam(r, "topicID"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

// writeError maps domain errors onto status codes. Only invalid-input
// messages reach the client; everything else is logged and answered
// generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "not found",
		})
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}
