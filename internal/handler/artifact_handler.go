package handler

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
	"github.com/noah-isme/fvu-intake/pkg/response"
	"github.com/noah-isme/fvu-intake/pkg/storage"
)

type artifactOpener interface {
	Open(token string) (*os.File, string, error)
}

// ArtifactHandler serves archived artifacts through signed links.
type ArtifactHandler struct {
	artifacts artifactOpener
}

// NewArtifactHandler constructs the handler.
func NewArtifactHandler(artifacts artifactOpener) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// Download godoc
// @Summary Download an archived artifact
// @Tags Artifacts
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /artifacts/{token} [get]
func (h *ArtifactHandler) Download(c *gin.Context) {
	file, name, err := h.artifacts.Open(c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTokenExpired):
			response.Error(c, appErrors.ErrLinkExpired)
		case errors.Is(err, storage.ErrTokenInvalid), errors.Is(err, fs.ErrNotExist):
			response.Error(c, appErrors.ErrArtifactNotFound)
		default:
			response.Error(c, err)
		}
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
