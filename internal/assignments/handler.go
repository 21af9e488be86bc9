package assignments

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/titulaflow/titulaflow/internal/platform/httpx"
)

type assignmentService interface {
	AssignTutor(ctx context.Context, periodID, studentID, staffID int64) (Assignment, error)
	AssignReader(ctx context.Context, periodID, studentID, staffID int64) (Assignment, error)
	AssignPanel(ctx context.Context, periodID, studentID int64, staffIDs []int64) (Assignment, error)
	ReplacePanel(ctx context.Context, periodID, studentID int64, staffIDs []int64) (Assignment, error)
	Get(ctx context.Context, periodID, studentID int64) (Assignment, error)
	RegisterSubject(ctx context.Context, periodID int64, req RegisterSubjectRequest) (SubjectLoad, error)
	ListSubjects(ctx context.Context, unitID, careerID, periodID int64) ([]SubjectLoad, error)
}

// Handler wires HTTP endpoints for the assignment engine.
type Handler struct {
	logger   *slog.Logger
	service  assignmentService
	validate *validator.Validate
}

// NewHandler constructs an assignments HTTP handler.
func NewHandler(logger *slog.Logger, service assignmentService) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{periodID}/students/{studentID}", h.get)
	r.Post("/periods/{periodID}/students/{studentID}/tutor", h.assignTutor)
	r.Post("/periods/{periodID}/students/{studentID}/reader", h.assignReader)
	r.Post("/periods/{periodID}/students/{studentID}/panel", h.assignPanel)
	r.Put("/periods/{periodID}/students/{studentID}/panel", h.replacePanel)
	r.Get("/periods/{periodID}/subjects", h.listSubjects)
	r.Post("/periods/{periodID}/subjects", h.registerSubject)
}

func (h *Handler) scope(r *http.Request) (periodID, studentID int64, ok bool) {
	var err error
	periodID, err = strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	studentID, err = strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return periodID, studentID, true
}

func (h *Handler) decodeRole(w http.ResponseWriter, r *http.Request) (AssignRoleRequest, bool) {
	var req AssignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	periodID, studentID, ok := h.scope(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid assignment scope")
		return
	}
	assignment, err := h.service.Get(r.Context(), periodID, studentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

func (h *Handler) assignTutor(w http.ResponseWriter, r *http.Request) {
	periodID, studentID, ok := h.scope(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid assignment scope")
		return
	}
	req, ok := h.decodeRole(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.AssignTutor(r.Context(), periodID, studentID, req.StaffID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

func (h *Handler) assignReader(w http.ResponseWriter, r *http.Request) {
	periodID, studentID, ok := h.scope(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid assignment scope")
		return
	}
	req, ok := h.decodeRole(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.AssignReader(r.Context(), periodID, studentID, req.StaffID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

func (h *Handler) decodePanel(w http.ResponseWriter, r *http.Request) (AssignPanelRequest, bool) {
	var req AssignPanelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) assignPanel(w http.ResponseWriter, r *http.Request) {
	periodID, studentID, ok := h.scope(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid assignment scope")
		return
	}
	req, ok := h.decodePanel(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.AssignPanel(r.Context(), periodID, studentID, req.StaffIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

func (h *Handler) replacePanel(w http.ResponseWriter, r *http.Request) {
	periodID, studentID, ok := h.scope(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid assignment scope")
		return
	}
	req, ok := h.decodePanel(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.ReplacePanel(r.Context(), periodID, studentID, req.StaffIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

func (h *Handler) registerSubject(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid period id")
		return
	}
	var req RegisterSubjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}
	load, err := h.service.RegisterSubject(r.Context(), periodID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, load)
}

func (h *Handler) listSubjects(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "invalid period id")
		return
	}
	unitID, err := strconv.ParseInt(r.URL.Query().Get("unit_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "unit_id is required")
		return
	}
	careerID, err := strconv.ParseInt(r.URL.Query().Get("career_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", "career_id is required")
		return
	}
	out, err := h.service.ListSubjects(r.Context(), unitID, careerID, periodID)
	if err != nil {
		h.logger.Error("list subjects", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
