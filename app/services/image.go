package services

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeImageURL makes a stored image reference absolute against base:
//
//	https://cdn.example/a.png          unchanged
//	http://localhost:4000/images/a.png <base>/images/a.png
//	/images/a.png                      <base>/images/a.png
//	a.png                              <base>/images/a.png
func NormalizeImageURL(image, base string) string {
	if image == "" {
		return image
	}
	base = strings.TrimRight(base, "/")

	if u, err := url.Parse(image); err == nil && u.Scheme != "" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return image
		}
		return base + "/images/" + path.Base(u.Path)
	}
	if strings.HasPrefix(image, "/images") {
		return base + image
	}
	return base + "/images/" + image
}
