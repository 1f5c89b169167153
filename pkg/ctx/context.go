// Package ctx gives handlers a single *Context instead of the
// (http.ResponseWriter, *http.Request) pair:
//
//	func (cc *CartController) Get(c *ctx.Context) {
//	    cart, err := cc.carts.Get(c.Context(), accountID)
//	    ...
//	    c.JSON(http.StatusOK, cart)
//	}
//
//	r.Post("/getcart", "cart.get", ctx.Wrap(cc.Get))
package ctx

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/modera-shop/modera/pkg/bind"
	"github.com/modera-shop/modera/pkg/response"
	"github.com/modera-shop/modera/pkg/validate"
)

type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc to http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

func (c *Context) Query(key string) string { return c.R.URL.Query().Get(key) }

func (c *Context) Header(key string) string { return c.R.Header.Get(key) }

func (c *Context) Context() context.Context { return c.R.Context() }

// Origin returns scheme://host as seen by the client, honouring
// X-Forwarded-Proto from a terminating proxy.
func (c *Context) Origin() string {
	scheme := "http"
	if c.R.TLS != nil {
		scheme = "https"
	}
	if proto := c.R.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.SplitN(proto, ",", 2)[0])
	}
	return scheme + "://" + c.R.Host
}

// FormFile returns the named multipart file. maxMemory bounds the in-memory
// part of the parse; the remainder spills to temp files.
func (c *Context) FormFile(field string, maxMemory int64) (multipart.File, *multipart.FileHeader, error) {
	if err := c.R.ParseMultipartForm(maxMemory); err != nil {
		return nil, nil, err
	}
	return c.R.FormFile(field)
}

// BindJSON decodes and validates the body into dest. On failure the 400 or
// 422 response has already been written and false is returned.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Fail(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

func (c *Context) SetHeader(key, value string) { c.W.Header().Set(key, value) }

func (c *Context) JSON(code int, v any) {
	c.status = code
	response.JSON(c.W, code, v)
}

// Fail writes {"success":false,"error":message}.
func (c *Context) Fail(code int, message string) {
	c.status = code
	response.Fail(c.W, code, message)
}

func (c *Context) ValidationError(errs map[string]string) {
	c.status = http.StatusUnprocessableEntity
	response.ValidationFailed(c.W, errs)
}

// String writes a plain-text response.
func (c *Context) String(code int, format string, args ...any) {
	c.W.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.W.WriteHeader(code)
	c.status = code
	fmt.Fprintf(c.W, format, args...)
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
