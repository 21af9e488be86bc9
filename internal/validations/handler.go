package validations

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/titulaflow/titulaflow/internal/platform/httpx"
)

type validationService interface {
	Approve(ctx context.Context, key Key) (Record, error)
	Reject(ctx context.Context, key Key, observation *string) (Record, error)
	Reconsider(ctx context.Context, key Key) (Record, error)
	Get(ctx context.Context, key Key) (Record, error)
	ListByProcess(ctx context.Context, process Process, periodID int64) ([]Record, error)
}

// Handler wires HTTP endpoints for the validation ledger.
type Handler struct {
	logger   *slog.Logger
	service  validationService
	validate *validator.Validate
}

// NewHandler constructs a validations HTTP handler.
func NewHandler(logger *slog.Logger, service validationService) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{process}/periods/{periodID}", h.list)
	r.Get("/{process}/periods/{periodID}/students/{studentID}", h.get)
	r.Post("/{process}/periods/{periodID}/students/{studentID}/approve", h.approve)
	r.Post("/{process}/periods/{periodID}/students/{studentID}/reject", h.reject)
	r.Post("/{process}/periods/{periodID}/students/{studentID}/reconsider", h.reconsider)
}

func (h *Handler) key(r *http.Request) (Key, bool) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		return Key{}, false
	}
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		return Key{}, false
	}
	return Key{
		Process:   Process(chi.URLParam(r, "process")),
		PeriodID:  periodID,
		StudentID: studentID,
	}, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid period id")
		return
	}
	out, err := h.service.ListByProcess(r.Context(), Process(chi.URLParam(r, "process")), periodID)
	if err != nil {
		h.logger.Error("list validations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid ledger key")
		return
	}
	rec, err := h.service.Get(r.Context(), key)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid ledger key")
		return
	}
	rec, err := h.service.Approve(r.Context(), key)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid ledger key")
		return
	}
	var req DecisionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
			return
		}
	}
	rec, err := h.service.Reject(r.Context(), key, req.Observation)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) reconsider(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid ledger key")
		return
	}
	rec, err := h.service.Reconsider(r.Context(), key)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
