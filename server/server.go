package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	accountx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/account"
	contractx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/contract"
	draftx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/draft"
	strategyx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/strategy"
	tacticianx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/tactician"
)

// TurnRunner starts one agent turn and streams its chunks.
type TurnRunner interface {
	Run(ctx context.Context, req tacticianx.Request) (<-chan contractx.StreamChunk, error)
}

// Publisher delivers approval events to an external queue. It is optional;
// a nil publisher disables event delivery.
type Publisher interface {
	PublishJSON(ctx context.Context, payload any) (string, error)
}

// Server exposes the chat, account and draft-approval endpoints over HTTP.
type Server struct {
	cfg       Config
	runner    TurnRunner
	source    accountx.Source
	drafts    draftx.Store
	publisher Publisher

	// background tracks approval publishes so shutdown can wait for them.
	background conc.WaitGroup
}

func New(cfg Config, runner TurnRunner, source accountx.Source, drafts draftx.Store, publisher Publisher) (*Server, error) {
	if runner == nil {
		return nil, errors.New("nil turn runner")
	}
	if source == nil {
		return nil, errors.New("nil account source")
	}
	if drafts == nil {
		return nil, errors.New("nil draft store")
	}
	return &Server{
		cfg:       cfg,
		runner:    runner,
		source:    source,
		drafts:    drafts,
		publisher: publisher,
	}, nil
}

// Handler builds the route table. The frontend runs on another origin during
// development, so every route answers CORS preflight.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/account/context", s.handleAccountContext)
	mux.HandleFunc("/api/drafts/", s.handleDraft)
	mux.HandleFunc("/health", s.handleHealth)
	return cors(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully: first the
// listener with in-flight streams, then the background publish queue.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown incomplete")
		}
		s.background.Wait()
		return ctx.Err()
	case err := <-errCh:
		s.background.Wait()
		return err
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	AccountID string        `json:"accountId,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

// handleChat runs one turn for the useChat frontend hook and streams the
// response in the AI SDK data stream format.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	history, userMessage, err := splitHistory(req.Messages)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.streamTurn(w, r, tacticianx.Request{
		AccountID:   s.accountOr(req.AccountID),
		History:     history,
		UserMessage: userMessage,
	})
}

// splitHistory converts the AI SDK message list into prior turns plus the
// new user message. The list must end with a user message; roles other than
// user and assistant are dropped.
func splitHistory(msgs []chatMessage) ([]*schema.Message, string, error) {
	if len(msgs) == 0 {
		return nil, "", errors.New("messages are required")
	}
	last := msgs[len(msgs)-1]
	if last.Role != "user" {
		return nil, "", errors.New("last message must be from the user")
	}
	history := make([]*schema.Message, 0, len(msgs)-1)
	for _, m := range msgs[:len(msgs)-1] {
		switch m.Role {
		case "user":
			history = append(history, schema.UserMessage(m.Content))
		case "assistant":
			history = append(history, schema.AssistantMessage(m.Content, nil))
		}
	}
	return history, last.Content, nil
}

func (s *Server) streamTurn(w http.ResponseWriter, r *http.Request, req tacticianx.Request) {
	ch, err := s.runner.Run(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, contractx.ErrModelInvoke) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	ds := newDataStream(w)
	for chunk := range ch {
		if err := ds.writeChunk(chunk); err != nil {
			log.Debug().Err(err).Msg("stream write failed, client gone")
			return
		}
	}
}

func (s *Server) handleAccountContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := s.accountOr(r.URL.Query().Get("account_id"))
	acct, err := s.source.AccountContext(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, contractx.ErrAccountNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

const (
	actionApprove = "approve"
	actionAdjust  = "adjust"
)

type approvalRequest struct {
	Action    string `json:"action"`
	Notes     string `json:"notes,omitempty"`
	AccountID string `json:"accountId,omitempty"`
}

// handleDraft routes /api/drafts/{id}/approval.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/drafts/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "approval" {
		http.NotFound(w, r)
		return
	}
	s.handleApproval(w, r, parts[0])
}

// handleApproval settles one draft and re-enters the loop as a synthetic
// user turn so the assistant can confirm or rework the plan. The response is
// the same data stream the chat endpoint speaks.
func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request, draftID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := s.drafts.Get(r.Context(), draftID)
	if err != nil {
		if errors.Is(err, draftx.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	accountID := s.accountOr(req.AccountID)
	var followUp string
	switch req.Action {
	case actionApprove:
		rec, err = s.drafts.SetStatus(r.Context(), draftID, strategyx.StatusApproved)
		if err != nil {
			if errors.Is(err, draftx.ErrInvalidTransition) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		s.publishApproval(accountID, rec)
		followUp = fmt.Sprintf("I approve draft %s (%s).", rec.ID, rec.Name)
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			followUp += " Note: " + notes
		}
		followUp += " Please confirm what happens next."

	case actionAdjust:
		notes := strings.TrimSpace(req.Notes)
		if notes == "" {
			http.Error(w, "notes are required to adjust a draft", http.StatusBadRequest)
			return
		}
		followUp = fmt.Sprintf("Please adjust draft %s (%s): %s", rec.ID, rec.Name, notes)

	default:
		http.Error(w, fmt.Sprintf("unknown action %q", req.Action), http.StatusBadRequest)
		return
	}

	log.Info().
		Str("draft_id", draftID).
		Str("action", req.Action).
		Str("account_id", accountID).
		Msg("draft approval")

	s.streamTurn(w, r, tacticianx.Request{
		AccountID:   accountID,
		UserMessage: followUp,
	})
}

type approvalEvent struct {
	Type       string    `json:"type"`
	DraftID    string    `json:"draft_id"`
	Kind       string    `json:"kind"`
	Name       string    `json:"name"`
	Cohort     string    `json:"cohort,omitempty"`
	AccountID  string    `json:"account_id"`
	ApprovedAt time.Time `json:"approved_at"`
}

// publishApproval hands the event to the queue off the request path so a slow
// broker cannot stall the confirmation stream.
func (s *Server) publishApproval(accountID string, rec *draftx.Record) {
	if s.publisher == nil {
		return
	}
	event := approvalEvent{
		Type:       "draft.approved",
		DraftID:    rec.ID,
		Kind:       rec.Kind,
		Name:       rec.Name,
		Cohort:     rec.Cohort,
		AccountID:  accountID,
		ApprovedAt: rec.UpdatedAt,
	}
	s.background.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msgID, err := s.publisher.PublishJSON(ctx, event)
		if err != nil {
			log.Warn().Err(err).Str("draft_id", event.DraftID).Msg("approval publish failed")
			return
		}
		log.Debug().Str("draft_id", event.DraftID).Str("message_id", msgID).Msg("approval published")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) accountOr(accountID string) string {
	if v := strings.TrimSpace(accountID); v != "" {
		return v
	}
	return s.cfg.DefaultAccount
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write json response")
	}
}
