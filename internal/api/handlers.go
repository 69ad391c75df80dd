package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/logging"
	"solana-wallet-lab/internal/observability"
	"solana-wallet-lab/internal/session"
	"solana-wallet-lab/internal/solana"
	"solana-wallet-lab/internal/storage"
)

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	Wallet string `json:"wallet" validate:"required,min=32,max=44,alphanum"`
}

// StartSessionResponse acknowledges a launched session.
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Slot      string `json:"slot"`
}

// SessionStatusResponse is the status record of a session.
type SessionStatusResponse struct {
	SessionID string     `json:"session_id"`
	Wallet    string     `json:"wallet"`
	Slot      string     `json:"slot"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// SessionLogsResponse carries the lines of a session log.
type SessionLogsResponse struct {
	Logs []string `json:"logs"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	slots    storage.SlotStore
	wallets  storage.WalletRegistry
	sessions storage.SessionStore
	results  storage.ResultStore
	launcher session.Launcher
	cache    *resultCache
	logDir   string
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger
}

// startSession handles POST /sessions.
func (h *handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Wallet = strings.TrimSpace(req.Wallet)
	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, "invalid wallet address", http.StatusBadRequest)
		return
	}
	if _, err := solana.DecodePubkey(req.Wallet); err != nil {
		h.writeError(w, "invalid wallet address", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	evaluated, err := h.wallets.Contains(ctx, req.Wallet)
	if err != nil {
		h.internalError(w, "wallet-check-failed", err)
		return
	}
	if evaluated {
		observability.RecordSessionRequest("already_evaluated")
		h.writeError(w, "wallet already evaluated", http.StatusConflict)
		return
	}

	slot, err := h.slots.Acquire(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoSlotAvailable) || errors.Is(err, storage.ErrLockTimeout) {
			observability.RecordSessionRequest("no_slot")
			h.logger.Info("session-rejected", zap.String("wallet", req.Wallet), zap.Error(err))
			h.writeError(w, "all slots in use, try later", http.StatusTooManyRequests)
			return
		}
		h.internalError(w, "slot-acquire-failed", err)
		return
	}

	id := uuid.NewString()
	started := h.now()
	err = h.sessions.Create(ctx, &domain.Session{
		ID:        id,
		Wallet:    req.Wallet,
		Slot:      slot,
		Status:    domain.SessionRunning,
		StartTime: started,
	})
	if err != nil {
		h.releaseSlot(r, slot)
		h.internalError(w, "session-create-failed", err)
		return
	}

	if err := h.launcher.Launch(ctx, session.Request{Wallet: req.Wallet, SessionID: id, SlotID: slot}); err != nil {
		h.releaseSlot(r, slot)
		if ferr := h.sessions.Finish(context.WithoutCancel(ctx), id, domain.SessionFailed, h.now()); ferr != nil {
			h.logger.Error("session-finish-failed", zap.String("session_id", id), zap.Error(ferr))
		}
		h.internalError(w, "session-launch-failed", err)
		return
	}

	observability.RecordSessionRequest("accepted")
	h.logger.Info("session-started", zap.String("session_id", id), zap.String("wallet", req.Wallet), zap.String("slot", slot))
	h.writeJSON(w, http.StatusOK, StartSessionResponse{SessionID: id, Status: "started", Slot: slot})
}

// getSession handles GET /sessions/{id}.
func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, "session not found", http.StatusNotFound)
			return
		}
		h.internalError(w, "session-get-failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, SessionStatusResponse{
		SessionID: s.ID,
		Wallet:    s.Wallet,
		Slot:      s.Slot,
		Status:    string(s.Status),
		StartTime: s.StartTime.UTC(),
		EndTime:   s.EndTime,
	})
}

// getSessionLogs handles GET /sessions/{id}/logs.
func (h *handler) getSessionLogs(w http.ResponseWriter, r *http.Request) {
	lines, err := logging.ReadSessionLog(h.logDir, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, logging.ErrNoLog) {
			h.writeError(w, "log not found", http.StatusNotFound)
			return
		}
		h.internalError(w, "session-log-read-failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, SessionLogsResponse{Logs: lines})
}

// getSessionResult handles GET /sessions/{id}/result.
func (h *handler) getSessionResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.serveResult(w, sessionKey(id), func() (*domain.SessionResult, error) {
		return h.results.GetBySession(r.Context(), id)
	})
}

// getWalletResult handles GET /results/{wallet}.
func (h *handler) getWalletResult(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	h.serveResult(w, walletKey(wallet), func() (*domain.SessionResult, error) {
		return h.results.GetByWallet(r.Context(), wallet)
	})
}

func (h *handler) serveResult(w http.ResponseWriter, key string, load func() (*domain.SessionResult, error)) {
	if res, ok := h.cache.get(key); ok {
		h.writeResult(w, res)
		return
	}
	res, err := load()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, "result not found", http.StatusNotFound)
			return
		}
		h.internalError(w, "result-get-failed", err)
		return
	}
	h.cache.put(res)
	h.writeResult(w, res)
}

func (h *handler) writeResult(w http.ResponseWriter, res *domain.SessionResult) {
	data, err := domain.EncodeResult(res)
	if err != nil {
		h.internalError(w, "result-encode-failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// health handles GET /health.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.List(r.Context())
	if err != nil {
		h.logger.Warn("health-check-failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	free := 0
	for _, s := range slots {
		if s.State == domain.SlotFree {
			free++
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "slots": len(slots), "free_slots": free})
}

func (h *handler) releaseSlot(r *http.Request, slot string) {
	if err := h.slots.Release(context.WithoutCancel(r.Context()), slot); err != nil {
		h.logger.Error("slot-release-failed", zap.String("slot", slot), zap.Error(err))
	}
}

func (h *handler) internalError(w http.ResponseWriter, event string, err error) {
	h.logger.Error(event, zap.Error(err))
	h.writeError(w, "internal error", http.StatusInternalServerError)
}

func (h *handler) writeError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}
