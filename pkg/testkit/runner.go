package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	khttp "github.com/modera-shop/modera/pkg/http"
)

// Run executes the flow in path against handler as one subtest.
func Run(t *testing.T, handler http.Handler, path string) {
	t.Helper()

	f, err := LoadFlow(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Run(f.Name, func(t *testing.T) { RunFlow(t, handler, f) })
}

// RunDir runs every *.json in dir that is a scenario or flow. Files ending
// in _req.json or _res.json are request and response bodies and skipped.
func RunDir(t *testing.T, handler http.Handler, dir string) {
	t.Helper()

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("testkit: glob %q: %v", dir, err)
	}
	ran := 0
	for _, p := range paths {
		if strings.HasSuffix(p, "_req.json") || strings.HasSuffix(p, "_res.json") {
			continue
		}
		Run(t, handler, p)
		ran++
	}
	if ran == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}
}

// RunFlow runs the steps in order, stopping at the first failing step.
func RunFlow(t *testing.T, handler http.Handler, f *Flow) {
	t.Helper()

	vars := map[string]string{}
	for _, s := range f.Steps {
		if !t.Run(s.Name, func(t *testing.T) { runScenario(t, handler, s, vars) }) {
			return
		}
	}
}

func runScenario(t *testing.T, handler http.Handler, s *Scenario, vars map[string]string) {
	t.Helper()

	req := buildRequest(t, s, vars)

	mt := NewMockTransport(s.Mocks, s.IsMockRequired)
	khttp.DefaultClient.Transport = mt
	defer khttp.ResetTransport()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code)
	AssertHeaders(t, s, rec.Header())

	switch {
	case len(s.ResponseBody) > 0:
		AssertJSONBody(t, s, s.ResponseBody, rec.Body.Bytes())
	case s.ResponseFileName != "":
		expected, err := os.ReadFile(s.ResponseBodyPath())
		if assert.NoError(t, err, "[%s] read response file", s.Name) {
			AssertJSONBody(t, s, expected, rec.Body.Bytes())
		}
	}

	for _, step := range mt.Uncalled() {
		t.Errorf("[%s] mock %s %s was never called", s.Name, step.MatchMethod, step.MatchURL)
	}

	capture(t, s, rec.Body.Bytes(), vars)
}

func buildRequest(t *testing.T, s *Scenario, vars map[string]string) *http.Request {
	t.Helper()

	var (
		body        io.Reader
		contentType = "application/json"
	)
	switch {
	case s.Upload != nil:
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if s.Upload.FileName != "" {
			fw, err := mw.CreateFormFile(s.Upload.Field, s.Upload.FileName)
			if err != nil {
				t.Fatalf("[%s] multipart: %v", s.Name, err)
			}
			_, _ = fw.Write([]byte(s.Upload.Content))
		}
		_ = mw.Close()
		body, contentType = &buf, mw.FormDataContentType()
	case len(s.RequestBody) > 0:
		body = strings.NewReader(expand(string(s.RequestBody), vars))
	case s.RequestFileName != "":
		data, err := os.ReadFile(s.RequestBodyPath())
		if err != nil {
			t.Fatalf("[%s] read request file: %v", s.Name, err)
		}
		body = strings.NewReader(expand(string(data), vars))
	}

	req := httptest.NewRequest(strings.ToUpper(s.RequestMethod), expand(s.RequestURL, vars), body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, expand(v, vars))
	}
	return req
}

func capture(t *testing.T, s *Scenario, body []byte, vars map[string]string) {
	t.Helper()
	if len(s.Capture) == 0 {
		return
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("[%s] capture: response is not a JSON object: %s", s.Name, body)
	}
	for name, field := range s.Capture {
		v, ok := fields[field]
		if !ok {
			t.Fatalf("[%s] capture %s: field %q missing", s.Name, name, field)
		}
		vars[name] = fmt.Sprint(v)
	}
}
