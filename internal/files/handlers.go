package files

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sol-registry/sol-backend/internal/index/domain"
	"github.com/sol-registry/sol-backend/internal/pep503"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the download and management routes under /files.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/:project/:version/:filename", h.download)
	r.GET("/:project/:version/:filename/info", h.info)
	r.POST("/:project/:version/:filename/yank", h.yankFile(true))
	r.POST("/:project/:version/:filename/unyank", h.yankFile(false))
	r.POST("/:project/:version/yank", h.yankRelease(true))
	r.POST("/:project/:version/unyank", h.yankRelease(false))
}

// download serves the distribution itself, or a sidecar when the
// requested name carries a .metadata or .asc suffix.
func (h *Handler) download(c *gin.Context) {
	project := c.Param("project")
	version := c.Param("version")
	filename := c.Param("filename")
	ctx := c.Request.Context()

	var (
		dl  *Download
		err error
	)
	switch {
	case strings.HasSuffix(filename, ".metadata"):
		dl, err = h.svc.Metadata(ctx, project, version, strings.TrimSuffix(filename, ".metadata"))
	case strings.HasSuffix(filename, ".asc"):
		dl, err = h.svc.Signature(ctx, project, version, strings.TrimSuffix(filename, ".asc"))
	default:
		dl, err = h.svc.Download(ctx, project, version, filename)
	}
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"detail": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	if dl.SHA256Digest != "" {
		c.Header("ETag", `"`+dl.SHA256Digest+`"`)
	}
	c.Data(http.StatusOK, dl.ContentType, dl.Content)
}

type fileInfoResponse struct {
	Filename       string    `json:"filename"`
	Project        string    `json:"project"`
	Version        string    `json:"version"`
	Size           int64     `json:"size"`
	MD5Digest      string    `json:"md5_digest"`
	SHA256Digest   string    `json:"sha256_digest"`
	ContentType    string    `json:"content_type"`
	PackageType    string    `json:"packagetype"`
	PythonVersion  string    `json:"python_version"`
	RequiresPython string    `json:"requires_python"`
	UploadTime     time.Time `json:"upload_time"`
	UploadedBy     string    `json:"uploaded_by,omitempty"`
	URL            string    `json:"url"`
	HasSignature   bool      `json:"has_sig"`
	HasMetadata    bool      `json:"has_metadata"`
	MetadataSHA256 string    `json:"metadata_sha256,omitempty"`
	Yanked         bool      `json:"yanked"`
	YankReason     string    `json:"yank_reason,omitempty"`
}

func (h *Handler) info(c *gin.Context) {
	f, err := h.svc.Info(c.Request.Context(), c.Param("project"), c.Param("version"), c.Param("filename"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, fileInfoResponse{
		Filename:       f.Filename,
		Project:        pep503.Normalize(c.Param("project")),
		Version:        c.Param("version"),
		Size:           f.Size,
		MD5Digest:      f.MD5Digest,
		SHA256Digest:   f.SHA256Digest,
		ContentType:    f.ContentType,
		PackageType:    f.PackageType,
		PythonVersion:  f.PythonVersion,
		RequiresPython: f.RequiresPython,
		UploadTime:     f.UploadTime.UTC(),
		UploadedBy:     f.UploadedBy,
		URL:            "/files/" + f.Path,
		HasSignature:   f.HasSignature,
		HasMetadata:    f.HasMetadata,
		MetadataSHA256: f.MetadataSHA256,
		Yanked:         f.Yanked,
		YankReason:     f.YankReason,
	})
}

type yankRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) yankFile(yanked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req yankRequest
		if yanked {
			// Body is optional; a missing reason yanks without one.
			_ = c.ShouldBindJSON(&req)
		}

		err := h.svc.YankFile(c.Request.Context(),
			c.Param("project"), c.Param("version"), c.Param("filename"), yanked, req.Reason)
		if err != nil {
			c.JSON(domain.HTTPStatus(err), gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "yanked": yanked})
	}
}

func (h *Handler) yankRelease(yanked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req yankRequest
		if yanked {
			_ = c.ShouldBindJSON(&req)
		}

		err := h.svc.YankRelease(c.Request.Context(),
			c.Param("project"), c.Param("version"), yanked, req.Reason)
		if err != nil {
			c.JSON(domain.HTTPStatus(err), gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "yanked": yanked})
	}
}
