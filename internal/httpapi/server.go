// Package httpapi exposes the council pipeline over HTTP: conversation CRUD,
// the two SSE streaming entry points, and the model catalog.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dusk-indust/council/internal/catalog"
	"github.com/dusk-indust/council/internal/council"
	"github.com/dusk-indust/council/internal/events"
	"github.com/dusk-indust/council/internal/openrouter"
)

// ConversationStore is the persistence surface the API needs: the sequencer's
// store plus listing lifecycle.
type ConversationStore interface {
	council.Store
	Create() (*council.Conversation, error)
	List() ([]council.ConversationMeta, error)
	Delete(id string) error
}

// Pipeline is the sequencer surface the streaming handlers drive.
type Pipeline interface {
	Begin(ctx context.Context, conversationID, query string, sel council.ModelSelection, bridge *events.Bridge) error
	Resume(ctx context.Context, conversationID string, answers council.ClarificationAnswers, bridge *events.Bridge) error
}

// Server is the HTTP front of the council service.
type Server struct {
	store    ConversationStore
	pipeline Pipeline
	cat      *catalog.Catalog
	log      *slog.Logger
	gatherer prometheus.Gatherer
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithGatherer sets the metrics gatherer behind GET /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) { s.gatherer = g }
}

// NewServer wires the API over the given store, pipeline, and catalog.
func NewServer(store ConversationStore, pipeline Pipeline, cat *catalog.Catalog, opts ...ServerOption) *Server {
	s := &Server{
		store:    store,
		pipeline: pipeline,
		cat:      cat,
		log:      slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", s.handleModels)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.handleListConversations)
			r.Post("/", s.handleCreateConversation)

			r.Route("/{conversationID}", func(r chi.Router) {
				r.Get("/", s.handleGetConversation)
				r.Delete("/", s.handleDeleteConversation)
				r.Post("/message/stream", s.handleMessageStream)
				r.Post("/clarification/stream", s.handleClarificationStream)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// modelInfo is one catalog entry in the GET /api/models response.
type modelInfo struct {
	ID        string `json:"id"`
	Reasoning string `json:"reasoning"`
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	ids := s.cat.ModelIDs()
	models := make([]modelInfo, 0, len(ids))
	for _, id := range ids {
		models = append(models, modelInfo{ID: id, Reasoning: s.cat.Class(id).String()})
	}
	s.respond(w, http.StatusOK, map[string]any{
		"models":            models,
		"min_expert_models": catalog.MinExpertModels,
		"reasoning_capable": s.cat.ReasoningCapable(),
		"defaults": map[string]any{
			"chairman_model": s.cat.DefaultChairman,
			"expert_models":  s.cat.DefaultExperts,
			"utility_model":  s.cat.UtilityModel,
			"search_model":   s.cat.SearchModel,
		},
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	metas, err := s.store.List()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, metas)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, _ *http.Request) {
	conv, err := s.store.Create()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.Get(chi.URLParam(r, "conversationID"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respond(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "conversationID")); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// messageRequest starts a pipeline cycle. Omitted model fields fall back to
// the catalog defaults.
type messageRequest struct {
	Content         string                                `json:"content"`
	ChairmanModel   string                                `json:"chairman_model,omitempty"`
	ExpertModels    []string                              `json:"expert_models,omitempty"`
	ThinkingByModel map[string]openrouter.ReasoningConfig `json:"thinking_by_model,omitempty"`
}

func (s *Server) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Content == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("content is required"))
		return
	}
	id := chi.URLParam(r, "conversationID")
	// Validate existence before committing to the SSE response; a stream
	// cannot carry an HTTP status anymore.
	if _, err := s.store.Get(id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	sel := council.ModelSelection{
		ChairmanModel:   req.ChairmanModel,
		ExpertModels:    req.ExpertModels,
		ThinkingByModel: req.ThinkingByModel,
	}
	if sel.ChairmanModel == "" {
		sel.ChairmanModel = s.cat.DefaultChairman
	}
	if len(sel.ExpertModels) == 0 {
		sel.ExpertModels = append([]string{}, s.cat.DefaultExperts...)
	}

	s.stream(w, r, func(ctx context.Context, bridge *events.Bridge) error {
		return s.pipeline.Begin(ctx, id, req.Content, sel, bridge)
	})
}

func (s *Server) handleClarificationStream(w http.ResponseWriter, r *http.Request) {
	var answers council.ClarificationAnswers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	id := chi.URLParam(r, "conversationID")
	if _, err := s.store.Get(id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.stream(w, r, func(ctx context.Context, bridge *events.Bridge) error {
		return s.pipeline.Resume(ctx, id, answers, bridge)
	})
}

// stream runs one pipeline phase and relays its events as SSE frames. The
// pipeline runs on a context detached from the request: a subscriber
// disconnect stops the relay but never aborts the cycle, which keeps
// committing to the store until it reaches a terminal state.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, run func(context.Context, *events.Bridge) error) {
	bridge := events.NewBridge(0)
	sub := bridge.Subscribe()

	go func() {
		if err := run(context.WithoutCancel(r.Context()), bridge); err != nil {
			s.log.Warn("pipeline finished with error", "error", err)
		}
	}()

	sw := NewSSEWriter(w)
	sw.Init()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := sw.WriteEvent(ev); err != nil {
				// Client is gone. The pipeline keeps running detached.
				s.log.Debug("subscriber dropped", "error", err)
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response encode failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, council.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, err)
		return
	}
	s.respondError(w, http.StatusInternalServerError, err)
}
