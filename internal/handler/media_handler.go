package handler

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
	"github.com/noah-isme/survey-pulse-api/pkg/response"
	"github.com/noah-isme/survey-pulse-api/pkg/storage"
)

// MediaHandler serves survey media uploads and downloads.
type MediaHandler struct {
	store       *storage.MediaStore
	maxFileSize int64
}

// NewMediaHandler creates a new handler.
func NewMediaHandler(store *storage.MediaStore, maxFileSize int64) *MediaHandler {
	return &MediaHandler{store: store, maxFileSize: maxFileSize}
}

// Upload godoc
// @Summary Upload media
// @Description Store an image attached to a survey, question or option
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Media file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the size limit"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	ref, err := h.store.Save(header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"ref": ref})
}

// Get godoc
// @Summary Download media
// @Description Stream a stored media file
// @Tags Media
// @Param ref path string true "Media reference"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /media/{ref} [get]
func (h *MediaHandler) Get(c *gin.Context) {
	file, err := h.store.Open(c.Param("ref"))
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	defer file.Close() //nolint:errcheck

	http.ServeContent(c.Writer, c.Request, c.Param("ref"), fileModTime(file), file)
}

// Delete godoc
// @Summary Delete media
// @Description Remove a stored media file
// @Tags Media
// @Param ref path string true "Media reference"
// @Success 204 {object} response.Envelope
// @Router /media/{ref} [delete]
func (h *MediaHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("ref")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func fileModTime(file *os.File) time.Time {
	info, err := file.Stat()
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
