package lead

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"growly/internal/pkg/response"
)

const (
	msgSubmitted = "Thank you for your interest! We will contact you soon to schedule your free demo."
	msgDuplicate = "Thank you for your interest! We already have your information and will contact you soon."
	msgInternal  = "Something went wrong, please try again later"
)

// Handler handles lead HTTP requests
type Handler struct {
	service *Service
	now     func() time.Time
}

// NewHandler creates lead handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
		now:     time.Now,
	}
}

// SubmitLead handles POST /api/leads (public)
// @Summary Submit a lead
// @Description Public landing page form submission
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body SubmitLeadRequest true "Lead submission data"
// @Success 201 {object} response.Response{data=CreatedLead}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /leads [post]
func (h *Handler) SubmitLead(c *gin.Context) {
	var req SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	meta := RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	created, err := h.service.Submit(c.Request.Context(), req, meta)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, msgSubmitted, created)
}

// ListLeads handles GET /api/admin/leads
// @Summary List leads
// @Description Filter, search, sort and paginate leads
// @Tags Admin Leads
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Param status query string false "Status or all"
// @Param businessType query string false "Business type or all"
// @Param search query string false "Substring of name, email or phone"
// @Param sortBy query string false "createdAt, updatedAt, name, email, status, businessType"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Response{data=ListResult}
// @Failure 401 {object} response.Response
// @Router /admin/leads [get]
func (h *Handler) ListLeads(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), ListParamsFromQuery(c.Query))
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetLead handles GET /api/admin/leads/:id
// @Summary Get lead by ID
// @Tags Admin Leads
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Response{data=Lead}
// @Failure 404 {object} response.Response
// @Router /admin/leads/{id} [get]
func (h *Handler) GetLead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lead": lead})
}

// UpdateStatus handles PUT /api/admin/leads/:id/status
// @Summary Update lead status
// @Tags Admin Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param request body UpdateStatusRequest true "New status and optional notes"
// @Success 200 {object} response.Response{data=Lead}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/leads/{id}/status [put]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	lead, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Lead status updated successfully", gin.H{"lead": lead})
}

// DeleteLead handles DELETE /api/admin/leads/:id
// @Summary Delete lead
// @Tags Admin Leads
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/leads/{id} [delete]
func (h *Handler) DeleteLead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Lead deleted successfully", nil)
}

// GetStats handles GET /api/admin/stats
// @Summary Dashboard statistics
// @Tags Admin Leads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=DashboardStats}
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// ExportLeads handles GET /api/admin/leads/export
// @Summary Export leads
// @Description Filtered and sorted leads as a CSV or XLSX attachment
// @Tags Admin Leads
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Response
// @Router /admin/leads/export [get]
func (h *Handler) ExportLeads(c *gin.Context) {
	format, err := ParseExportFormat(c.Query("format"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Buffered so a store failure can still produce a JSON error.
	var buf bytes.Buffer
	if _, err := h.service.Export(c.Request.Context(), ListParamsFromQuery(c.Query), format, &buf); err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+format.Filename(h.now())+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *ValidationError
	var serr *InvalidStatusError

	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", verr.Fields)
	case errors.As(err, &serr):
		response.Error(c, http.StatusBadRequest, "INVALID_STATUS", serr.Error())
	case errors.Is(err, ErrDuplicateEmail):
		response.Error(c, http.StatusConflict, "DUPLICATE_EMAIL", msgDuplicate)
	case errors.Is(err, ErrLeadNotFound):
		response.Error(c, http.StatusNotFound, "LEAD_NOT_FOUND", "Lead not found")
	case errors.Is(err, ErrInvalidExportFormat):
		response.Error(c, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
	default:
		// Picked up by the error logging middleware.
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternal)
	}
}
