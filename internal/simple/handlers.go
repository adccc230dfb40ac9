package simple

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.index)
	r.GET("/:project/", h.project)
	r.GET("/:project", h.project)
}

func (h *Handler) index(c *gin.Context) {
	format := Negotiate(c.GetHeader("Accept"), c.GetHeader("User-Agent"), c.Query("format"))

	doc, err := h.svc.Index(c.Request.Context(), format)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"detail": err.Error()})
		return
	}
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func (h *Handler) project(c *gin.Context) {
	format := Negotiate(c.GetHeader("Accept"), c.GetHeader("User-Agent"), c.Query("format"))

	doc, err := h.svc.Project(c.Request.Context(), c.Param("project"), format)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"detail": err.Error()})
		return
	}
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
