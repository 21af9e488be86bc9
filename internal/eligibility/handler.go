package eligibility

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/titulaflow/titulaflow/internal/platform/httpx"
	"github.com/titulaflow/titulaflow/internal/validations"
)

type eligibilityService interface {
	EligibleFor(ctx context.Context, process validations.Process, periodID int64) ([]Candidate, error)
	ListStanding(ctx context.Context, process validations.Process, periodID int64) ([]Standing, error)
}

// Handler wires HTTP endpoints for eligibility queries.
type Handler struct {
	logger  *slog.Logger
	service eligibilityService
}

// NewHandler constructs an eligibility HTTP handler.
func NewHandler(logger *slog.Logger, service eligibilityService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers eligibility routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{process}/periods/{periodID}", h.candidates)
	r.Get("/{process}/periods/{periodID}/standing", h.standing)
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid period id")
		return
	}
	out, err := h.service.EligibleFor(r.Context(), validations.Process(chi.URLParam(r, "process")), periodID)
	if err != nil {
		h.logger.Error("eligibility candidates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) standing(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid period id")
		return
	}
	out, err := h.service.ListStanding(r.Context(), validations.Process(chi.URLParam(r, "process")), periodID)
	if err != nil {
		h.logger.Error("eligibility standing", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
