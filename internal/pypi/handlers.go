package pypi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sol-registry/sol-backend/internal/index/domain"
	"github.com/sol-registry/sol-backend/internal/pep503"
)

// Store is the metadata lookup the endpoint needs.
type Store interface {
	ProjectDetail(ctx context.Context, normalized string) (*domain.ProjectDetail, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/:project/json", h.metadata)
}

func (h *Handler) metadata(c *gin.Context) {
	detail, err := h.store.ProjectDetail(c.Request.Context(), pep503.Normalize(c.Param("project")))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, Render(detail))
}
