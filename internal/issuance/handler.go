package issuance

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/titulaflow/titulaflow/internal/platform/httpx"
	"github.com/titulaflow/titulaflow/internal/shared"
	"github.com/titulaflow/titulaflow/internal/validations"
)

type issuanceService interface {
	Issue(ctx context.Context, key validations.Key, issuerID int64) (Document, error)
	GetDocument(ctx context.Context, key validations.Key) (Document, error)
	OpenDocument(ctx context.Context, key validations.Key) (Document, []byte, error)
}

// Handler wires HTTP endpoints for certificate issuance.
type Handler struct {
	logger  *slog.Logger
	service issuanceService
}

// NewHandler constructs an issuance HTTP handler.
func NewHandler(logger *slog.Logger, service issuanceService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers issuance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{process}/periods/{periodID}/students/{studentID}", h.issue)
	r.Get("/{process}/periods/{periodID}/students/{studentID}", h.getDocument)
	r.Get("/{process}/periods/{periodID}/students/{studentID}/content", h.content)
}

func (h *Handler) key(r *http.Request) (validations.Key, bool) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		return validations.Key{}, false
	}
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		return validations.Key{}, false
	}
	return validations.Key{
		Process:   validations.Process(chi.URLParam(r, "process")),
		PeriodID:  periodID,
		StudentID: studentID,
	}, true
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid issuance key")
		return
	}
	caller := shared.CallerFromContext(r.Context())
	doc, err := h.service.Issue(r.Context(), key, caller.UserID)
	if err != nil {
		h.logger.Error("issue certificate", slog.Any("error", err),
			slog.String("process", string(key.Process)),
			slog.Int64("student", key.StudentID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid issuance key")
		return
	}
	doc, err := h.service.GetDocument(r.Context(), key)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) content(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid issuance key")
		return
	}
	doc, blob, err := h.service.OpenDocument(r.Context(), key)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Kind+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}
