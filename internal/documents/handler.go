package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/users"
)

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/file", h.download)
	rg.PUT("/documents/:id/file", h.replace)
	rg.POST("/documents/:id/reject", middleware.RequireRole(string(users.RoleSupervisor)), h.reject)
	rg.DELETE("/documents/:id", h.delete)
	rg.GET("/documents/:id/history", h.history)
	rg.GET("/documents/:id/integrity", h.integrity)
}

// ActorFromContext builds the acting identity from the auth middleware values.
func ActorFromContext(c *gin.Context) Actor {
	return Actor{
		ID:    middleware.UserIDFromContext(c),
		Email: middleware.UserEmailFromContext(c),
		Role:  middleware.UserRoleFromContext(c),
	}
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload()+formOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.formError(c, err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	in := UploadInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		FileName:    fileHeader.Filename,
	}
	doc, err := h.Svc.Upload(c.Request.Context(), ActorFromContext(c), in, file)
	if err != nil {
		h.fail(c, err, "failed to upload document")
		return
	}
	c.Set("documentId", doc.ID)
	respond.Created(c, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	filter := ListFilter{Limit: 20}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Offset = parsed
		}
	}
	if v := c.Query("status"); v != "" {
		status, ok := ParseStatus(v)
		if !ok {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unknown status", nil)
			return
		}
		filter.Status = status
	}
	if c.Query("mine") == "true" {
		filter.UploadedBy = middleware.UserIDFromContext(c)
	}

	docs, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "failed to list documents")
		return
	}
	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) download(c *gin.Context) {
	doc, body, err := h.Svc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to open document")
		return
	}
	defer body.Close()

	c.Header("Content-Type", doc.MimeType)
	c.Header("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(doc.Name, `"`, "")+`"`)
	c.Header("X-Content-Hash", doc.ContentHash)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) replace(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload()+formOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.formError(c, err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.ReplaceContent(c.Request.Context(), ActorFromContext(c), c.Param("id"), fileHeader.Filename, file)
	if err != nil {
		h.fail(c, err, "failed to replace document content")
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) reject(c *gin.Context) {
	var req commentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
			return
		}
	}
	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Reject(c.Request.Context(), ActorFromContext(c), c.Param("id"), req.Comment)
	if err != nil {
		h.fail(c, err, "failed to reject document")
		return
	}
	c.Set("statusTransition", string(doc.Status))
	respond.OK(c, toResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Delete(c.Request.Context(), ActorFromContext(c), c.Param("id"), c.Query("comment"))
	if err != nil {
		h.fail(c, err, "failed to delete document")
		return
	}
	c.Set("statusTransition", string(doc.Status))
	respond.OK(c, toResponse(doc))
}

func (h *Handler) history(c *gin.Context) {
	entries, err := h.Svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to load history")
		return
	}
	respond.OK(c, toHistoryResponse(entries))
}

func (h *Handler) integrity(c *gin.Context) {
	ctx := c.Request.Context()
	doc, err := h.Svc.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to check integrity")
		return
	}
	intact, err := h.Svc.CheckFileIntegrity(ctx, doc)
	if err != nil {
		h.fail(c, err, "failed to check integrity")
		return
	}
	respond.OK(c, IntegrityResponse{
		DocumentID:  doc.ID,
		ContentHash: doc.ContentHash,
		Valid:       intact,
	})
}

func (h *Handler) maxUpload() int64 {
	if h.Svc.MaxUploadBytes > 0 {
		return h.Svc.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func (h *Handler) formError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, "file too large", nil)
		return
	}
	respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "not allowed to modify this document", nil)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotEditable):
		respond.Error(c, http.StatusConflict, respond.CodeInvalidStatus, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}
