package testkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Any in an expected body matches whatever the response holds at that
// position, as long as it is present and not null.
const Any = "<any>"

func AssertStatusCode(t *testing.T, s *Scenario, got int) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch", s.Name)
}

func AssertHeaders(t *testing.T, s *Scenario, got interface{ Get(string) string }) {
	t.Helper()
	for k, want := range s.ExpectedHeaders {
		assert.Equal(t, want, got.Get(k), "[%s] header %s", s.Name, k)
	}
}

// AssertJSONBody compares both bodies after decoding, so key order and
// whitespace never matter. Any in expected is filled from actual first.
func AssertJSONBody(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}

	var want, got interface{}
	require.NoError(t, json.Unmarshal(expected, &want), "[%s] expected body is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &got), "[%s] response is not valid JSON\nbody: %s", s.Name, actual) {
		return
	}
	assert.Equal(t, fillAny(want, got), got, "[%s] response body mismatch", s.Name)
}

func fillAny(want, got interface{}) interface{} {
	switch w := want.(type) {
	case string:
		if w == Any && got != nil {
			return got
		}
	case map[string]interface{}:
		g, ok := got.(map[string]interface{})
		if !ok {
			return want
		}
		out := make(map[string]interface{}, len(w))
		for k, v := range w {
			out[k] = fillAny(v, g[k])
		}
		return out
	case []interface{}:
		g, ok := got.([]interface{})
		if !ok {
			return want
		}
		out := make([]interface{}, len(w))
		for i, v := range w {
			var gv interface{}
			if i < len(g) {
				gv = g[i]
			}
			out[i] = fillAny(v, gv)
		}
		return out
	}
	return want
}
