package signatures

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/users"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
	// SignLimit throttles the sign endpoint; nil disables it.
	SignLimit gin.HandlerFunc
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, signLimit gin.HandlerFunc) *Handler {
	return &Handler{Svc: svc, SignLimit: signLimit}
}

// RegisterRoutes attaches signature routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	signChain := []gin.HandlerFunc{middleware.RequireRole(string(users.RoleSupervisor))}
	if h.SignLimit != nil {
		signChain = append(signChain, h.SignLimit)
	}
	signChain = append(signChain, h.sign)
	rg.POST("/documents/:id/sign", signChain...)
	rg.GET("/documents/:id/signatures", h.listByDocument)

	reviewers := middleware.RequireRole(string(users.RoleSupervisor), string(users.RoleAdmin))
	rg.GET("/signatures", reviewers, h.list)
	rg.GET("/signatures/:id", reviewers, h.get)
	rg.GET("/signatures/:id/verify", h.verify)
	rg.DELETE("/signatures/:id", middleware.RequireRole(string(users.RoleAdmin)), h.remove)
}

func (h *Handler) sign(c *gin.Context) {
	var req signRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
			return
		}
	}

	documentID := c.Param("id")
	c.Set("documentId", documentID)
	res, err := h.Svc.Sign(c.Request.Context(), SignInput{
		DocumentID:  documentID,
		SignerEmail: middleware.UserEmailFromContext(c),
		Comment:     req.Comment,
		ClientIP:    c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		h.fail(c, err, "failed to sign document")
		return
	}
	c.Set("signatureId", res.SignatureID)
	c.Set("statusTransition", res.Status)
	respond.Created(c, toSigningResponse(res))
}

func (h *Handler) verify(c *gin.Context) {
	id := c.Param("id")
	c.Set("signatureId", id)
	respond.OK(c, VerifyResponse{SignatureID: id, Valid: h.Svc.Verify(c.Request.Context(), id)})
}

func (h *Handler) list(c *gin.Context) {
	filter := ListFilter{SignerID: c.Query("signerId")}
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
	list, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "failed to list signatures")
		return
	}
	respond.OK(c, toResponses(list))
}

func (h *Handler) get(c *gin.Context) {
	sig, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to load signature")
		return
	}
	respond.OK(c, toResponse(sig))
}

func (h *Handler) listByDocument(c *gin.Context) {
	list, err := h.Svc.ListByDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to list signatures")
		return
	}
	respond.OK(c, toResponses(list))
}

func (h *Handler) remove(c *gin.Context) {
	c.Set("signatureId", c.Param("id"))
	res, err := h.Svc.Remove(c.Request.Context(), documents.ActorFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to remove signature")
		return
	}
	respond.OK(c, RemoveResponse{Message: res.Message, Deleted: toResponse(res.Deleted)})
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, ReasonOf(err), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "signature not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "insufficient role", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, nil)
	}
}
