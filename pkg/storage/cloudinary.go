package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/modera-shop/modera/config"
	khttp "github.com/modera-shop/modera/pkg/http"
)

const cloudinaryTimeout = 60 * time.Second

// CloudinaryDisk hands uploads to the Cloudinary image host.
type CloudinaryDisk struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryDisk(cfg config.CloudinarySettings) (*CloudinaryDisk, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("storage/cloudinary: %w", err)
	}
	cld.Upload.Client = http.Client{Transport: khttp.SharedTransport, Timeout: cloudinaryTimeout}
	return &CloudinaryDisk{cld: cld, folder: cfg.Folder}, nil
}

func (d *CloudinaryDisk) Name() string { return "cloudinary" }

// Put uploads data with the file's base name (sans extension) as public_id,
// overwriting any previous upload of the same id.
func (d *CloudinaryDisk) Put(ctx context.Context, name string, data []byte, _ string) (Object, error) {
	base := path.Base("/" + name)
	res, err := d.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:  strings.TrimSuffix(base, path.Ext(base)),
		Folder:    d.folder,
		Overwrite: api.Bool(true),
	})
	if err != nil {
		return Object{}, fmt.Errorf("storage/cloudinary: upload: %w", err)
	}
	if res.Error.Message != "" {
		return Object{}, fmt.Errorf("storage/cloudinary: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return Object{}, fmt.Errorf("storage/cloudinary: no secure_url in response")
	}
	return Object{Name: base, URL: res.SecureURL}, nil
}

func (d *CloudinaryDisk) List(context.Context) ([]Object, error) {
	return nil, ErrListUnsupported
}
