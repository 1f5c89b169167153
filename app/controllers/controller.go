// Package controllers adapts HTTP requests to the services and maps their
// errors to {success:false,error} responses.
package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modera-shop/modera/app/services"
	"github.com/modera-shop/modera/pkg/ctx"
	"github.com/modera-shop/modera/pkg/logger"
)

func statusOf(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuth:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fail writes err in the shop's error shape. Storage failures are logged
// and reported with their generic message.
func fail(c *ctx.Context, err error) {
	kind := services.KindOf(err)
	if kind == services.KindStorage {
		logger.WithCtx(c.Context()).Error("request failed", "path", c.R.URL.Path, "error", err)
	}
	c.Fail(statusOf(kind), services.MessageOf(err))
}

// flexID accepts a JSON number or string, so {"itemId":12} and
// {"itemId":"12"} bind the same way.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = ""
	case json.Number:
		*f = flexID(t.String())
	case string:
		*f = flexID(strings.TrimSpace(t))
	default:
		return fmt.Errorf("id must be a number or string")
	}
	return nil
}

func (f flexID) String() string { return string(f) }
