package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/modera-shop/modera/pkg/logger"
	"github.com/modera-shop/modera/pkg/metrics"
	"github.com/modera-shop/modera/pkg/storage"
)

// UploadService stores product images on the configured disk.
type UploadService struct {
	disks   *storage.Manager
	baseURL string
	now     func() time.Time
}

func NewUploadService(disks *storage.Manager, baseURL string) *UploadService {
	return &UploadService{disks: disks, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (s *UploadService) base(origin string) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	return strings.TrimRight(origin, "/")
}

// Filename builds product_<unix millis><ext>; ext defaults to .png.
func (s *UploadService) Filename(original string) string {
	ext := path.Ext(path.Base("/" + original))
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("product_%d%s", s.now().UnixMilli(), ext)
}

// Upload stores data and returns the public image URL.
func (s *UploadService) Upload(ctx context.Context, original string, data []byte, contentType, origin string) (string, error) {
	disk := s.disks.Uploads()
	name := s.Filename(original)

	obj, err := disk.Put(ctx, name, data, contentType)
	if err != nil {
		metrics.Uploads.WithLabelValues(disk.Name(), "error").Inc()
		msg := "Failed to save file"
		if disk.Name() == "cloudinary" {
			msg = "Cloudinary upload failed"
		}
		return "", &Error{Kind: KindStorage, Message: msg, Err: err}
	}
	metrics.Uploads.WithLabelValues(disk.Name(), "ok").Inc()
	logger.WithCtx(ctx).Info("upload: stored", "disk", disk.Name(), "file", obj.Name, "bytes", len(data))

	if strings.HasPrefix(obj.URL, "/") {
		return s.base(origin) + obj.URL, nil
	}
	return obj.URL, nil
}

// LocalImages lists the files served under /images with absolute URLs.
func (s *UploadService) LocalImages(ctx context.Context, origin string) ([]storage.Object, error) {
	objects, err := s.disks.Local().List(ctx)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Message: "Could not read images directory", Err: err}
	}
	base := s.base(origin)
	for i := range objects {
		objects[i].URL = base + objects[i].URL
	}
	return objects, nil
}
