package upload

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sol-registry/sol-backend/internal/auth"
	"github.com/sol-registry/sol-backend/internal/index/domain"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the legacy upload endpoint, compatible with
// `twine upload --repository-url .../legacy/`.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/", h.upload)
	r.POST("", h.upload)
}

// maxUploadSize caps a single distribution at 100 MiB.
const maxUploadSize = 100 << 20

func (h *Handler) upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid multipart form"})
		return
	}

	fileHeader, err := c.FormFile("content")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "missing file content"})
		return
	}
	content, err := readFormFile(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to read file content"})
		return
	}

	req := Request{
		Name:        c.PostForm("name"),
		Version:     c.PostForm("version"),
		Filename:    fileHeader.Filename,
		Content:     content,
		ContentType: fileHeader.Header.Get("Content-Type"),

		MD5Digest:    c.PostForm("md5_digest"),
		SHA256Digest: c.PostForm("sha256_digest"),

		RequiresPython: c.PostForm("requires_python"),
		Summary:        c.PostForm("summary"),
		Description:    c.PostForm("description"),
		Author:         c.PostForm("author"),
		AuthorEmail:    c.PostForm("author_email"),
		License:        c.PostForm("license"),
		Keywords:       c.PostForm("keywords"),
		HomePage:       c.PostForm("home_page"),

		UploadedBy: auth.From(c).Subject,
	}

	// Sidecars are optional multipart parts alongside the distribution.
	if metaHeader, err := c.FormFile("metadata"); err == nil {
		if req.Metadata, err = readFormFile(metaHeader); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to read metadata"})
			return
		}
	}
	if sigHeader, err := c.FormFile("gpg_signature"); err == nil {
		if req.Signature, err = readFormFile(sigHeader); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to read signature"})
			return
		}
	}

	res, err := h.svc.Upload(c.Request.Context(), req)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"detail": err.Error()})
		return
	}

	status := http.StatusCreated
	if res.Existing {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"success": true,
		"file": gin.H{
			"name":          res.File.Filename,
			"size":          res.File.Size,
			"md5_digest":    res.File.MD5Digest,
			"sha256_digest": res.File.SHA256Digest,
			"content_type":  res.File.ContentType,
			"url":           "/files/" + res.File.Path,
		},
	})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
