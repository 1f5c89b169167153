package controllers

import (
	"io"
	"net/http"

	"github.com/modera-shop/modera/app/services"
	"github.com/modera-shop/modera/pkg/ctx"
	"github.com/modera-shop/modera/pkg/logger"
)

// UploadField is the multipart field carrying the image.
const UploadField = "product"

type UploadController struct {
	uploads   *services.UploadService
	maxMemory int64
}

func NewUploadController(uploads *services.UploadService, maxMemory int64) *UploadController {
	return &UploadController{uploads: uploads, maxMemory: maxMemory}
}

// Upload answers with {success:1,image_url} or {success:0,message}.
func (uc *UploadController) Upload(c *ctx.Context) {
	file, hdr, err := c.FormFile(UploadField, uc.maxMemory)
	if err != nil {
		c.JSON(http.StatusBadRequest, map[string]any{"success": 0, "message": services.ErrNoFile.Message})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.WithCtx(c.Context()).Error("upload: read file", "error", err)
		c.JSON(http.StatusBadRequest, map[string]any{"success": 0, "message": services.ErrNoFile.Message})
		return
	}

	url, err := uc.uploads.Upload(c.Context(), hdr.Filename, data, hdr.Header.Get("Content-Type"), c.Origin())
	if err != nil {
		logger.WithCtx(c.Context()).Error("upload: store", "error", err)
		c.JSON(http.StatusInternalServerError, map[string]any{"success": 0, "message": services.MessageOf(err)})
		return
	}
	c.JSON(http.StatusOK, map[string]any{"success": 1, "image_url": url})
}

// DebugImages lists the locally stored images.
func (uc *UploadController) DebugImages(c *ctx.Context) {
	images, err := uc.uploads.LocalImages(c.Context(), c.Origin())
	if err != nil {
		logger.WithCtx(c.Context()).Error("debug-images: list", "error", err)
		c.JSON(http.StatusInternalServerError, map[string]any{"success": 0, "error": services.MessageOf(err)})
		return
	}
	c.JSON(http.StatusOK, map[string]any{"success": 1, "count": len(images), "images": images})
}
