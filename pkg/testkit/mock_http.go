package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockStep answers outgoing pkg/http calls whose URL starts with MatchURL
// (empty matches any URL) and, if set, whose method equals MatchMethod.
type MockStep struct {
	MatchMethod string         `json:"matchMethod"`
	MatchURL    string         `json:"matchUrl"`
	ReturnData  MockReturnData `json:"returnData"`
}

type MockReturnData struct {
	StatusCode int             `json:"statusCode"` // default 200
	Body       json.RawMessage `json:"body"`
}

// MockTransport replaces the shared outbound transport during a scenario:
//
//	mt := testkit.NewMockTransport(steps, true)
//	khttp.DefaultClient.Transport = mt
//	defer khttp.ResetTransport()
type MockTransport struct {
	mu      sync.Mutex
	steps   []mockEntry
	require bool
}

type mockEntry struct {
	step  MockStep
	calls int
}

func NewMockTransport(steps []MockStep, require bool) *MockTransport {
	mt := &MockTransport{require: require}
	for _, s := range steps {
		mt.steps = append(mt.steps, mockEntry{step: s})
	}
	return mt
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	for i := range mt.steps {
		e := &mt.steps[i]
		if e.step.MatchMethod != "" && !strings.EqualFold(e.step.MatchMethod, req.Method) {
			continue
		}
		if !strings.HasPrefix(req.URL.String(), e.step.MatchURL) {
			continue
		}
		e.calls++
		return respond(req, e.step.ReturnData), nil
	}

	if mt.require {
		return nil, fmt.Errorf("testkit: unexpected outgoing %s %s: no matching mock", req.Method, req.URL)
	}
	return respond(req, MockReturnData{
		StatusCode: http.StatusNotFound,
		Body:       json.RawMessage(`{"error":{"message":"no mock configured"}}`),
	}), nil
}

// Uncalled lists the steps that never matched a request.
func (mt *MockTransport) Uncalled() []MockStep {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var out []MockStep
	for _, e := range mt.steps {
		if e.calls == 0 {
			out = append(out, e.step)
		}
	}
	return out
}

func respond(req *http.Request, rd MockReturnData) *http.Response {
	code := rd.StatusCode
	if code == 0 {
		code = http.StatusOK
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(rd.Body)),
		Request:    req,
	}
}
