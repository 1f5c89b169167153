package ctx_test

import (
	"bytes"
	"crypto/tls"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modera-shop/modera/pkg/bind"
	appctx "github.com/modera-shop/modera/pkg/ctx"
)

func TestWrapAndJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	appctx.Wrap(func(c *appctx.Context) {
		c.JSON(http.StatusOK, map[string]any{"success": true, "name": "Blouse"})
		if c.WrittenStatus() != http.StatusOK {
			t.Errorf("expected written status 200, got %d", c.WrittenStatus())
		}
	})(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/signup", nil)
	appctx.Wrap(func(c *appctx.Context) {
		c.Fail(http.StatusBadRequest, "User already exists")
	})(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	want := `{"success":false,"error":"User already exists"}`
	if strings.TrimSpace(rec.Body.String()) != want {
		t.Errorf("expected %s, got %s", want, rec.Body.String())
	}
}

func TestString(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.String(http.StatusOK, "Express app is running")
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Body.String() != "Express app is running" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}

func TestBindJSONValid(t *testing.T) {
	rec := httptest.NewRecorder()
	body := `{"name":"John","email":"john@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name  string `json:"name"  validate:"required"`
			Email string `json:"email" validate:"required,email"`
		}
		if !c.BindJSON(&input) {
			t.Error("expected BindJSON to succeed")
			return
		}
		if input.Name != "John" {
			t.Errorf("expected John, got %s", input.Name)
		}
		c.JSON(http.StatusOK, nil)
	})(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("unexpected failure: %s", rec.Body.String())
	}
}

func TestBindJSONInvalid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))

	appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name string `json:"name" validate:"required"`
		}
		if c.BindJSON(&input) {
			t.Error("expected BindJSON to fail")
		}
	})(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"error":"The name field is required."`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestBindJSONTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))

	h := bind.LimitBody(16)(appctx.Wrap(func(c *appctx.Context) {
		var input struct {
			Name string `json:"name"`
		}
		c.BindJSON(&input)
	}))
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "too large") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestOrigin(t *testing.T) {
	cases := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"plain", func(r *http.Request) {}, "http://shop.local"},
		{"tls", func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, "https://shop.local"},
		{"proxy", func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https, http") }, "https://shop.local"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://shop.local/allproducts", nil)
		tc.setup(req)
		appctx.Wrap(func(c *appctx.Context) {
			if got := c.Origin(); got != tc.want {
				t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
			}
		})(httptest.NewRecorder(), req)
	}
}

func TestFormFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("product", "shirt.jpg")
	_, _ = fw.Write([]byte("jpeg-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	appctx.Wrap(func(c *appctx.Context) {
		f, hdr, err := c.FormFile("product", 1<<20)
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "shirt.jpg" {
			t.Errorf("unexpected filename %q", hdr.Filename)
		}
	})(httptest.NewRecorder(), req)
}
