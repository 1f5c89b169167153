// Package testkit drives API tests from JSON scenario files. A file holds
// either one scenario or a flow: an ordered list of steps sharing captured
// variables, so a signup token can feed the cart calls that follow.
//
//	testdata/
//	  cart_flow.json
//	  signup_req.json
//
//	func TestAPI(t *testing.T) {
//	    testkit.RunDir(t, handler, "testdata")
//	}
//
// A flow step:
//
//	{
//	  "name": "add to cart",
//	  "requestMethod": "POST",
//	  "requestUrl": "/addtocart",
//	  "headers": {"auth-token": "{{token}}"},
//	  "requestBody": {"itemId": "1"},
//	  "expectedCode": 200,
//	  "expectedHeaders": {"X-Cart-Applied": "true"},
//	  "responseBody": {"1": 1}
//	}
package testkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scenario is one request and its expectations.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	RequestFileName string            `json:"requestFileName"` // relative to the scenario file
	RequestBody     json.RawMessage   `json:"requestBody"`     // inline alternative to requestFileName
	Headers         map[string]string `json:"headers"`
	Upload          *UploadPart       `json:"upload"`

	ExpectedCode     int               `json:"expectedCode"`
	ExpectedHeaders  map[string]string `json:"expectedHeaders"`
	ResponseFileName string            `json:"responseFileName"`
	ResponseBody     json.RawMessage   `json:"responseBody"`

	// Capture maps a variable name to a top-level response field. Later
	// steps reference it as {{name}}.
	Capture map[string]string `json:"capture"`

	// IsMockRequired fails any outgoing call without a matching mock.
	IsMockRequired bool       `json:"isMockRequired"`
	Mocks          []MockStep `json:"mocks"`

	dir string
}

// UploadPart turns the request into multipart/form-data with one file.
type UploadPart struct {
	Field    string `json:"field"`
	FileName string `json:"fileName"`
	Content  string `json:"content"`
}

// Flow is an ordered list of scenarios run against one handler.
type Flow struct {
	Name  string      `json:"name"`
	Steps []*Scenario `json:"steps"`
}

// LoadFlow reads a scenario file. A file without "steps" is a flow of one.
func LoadFlow(path string) (*Flow, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	if len(f.Steps) == 0 {
		var s Scenario
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
		}
		f = Flow{Name: s.Name, Steps: []*Scenario{&s}}
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(abs), ".json")
	}

	dir := filepath.Dir(abs)
	for i, s := range f.Steps {
		s.dir = dir
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: %s step %d: %w", abs, i, err)
		}
	}
	return &f, nil
}

// LoadScenario reads a single-scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := LoadFlow(path)
	if err != nil {
		return nil, err
	}
	if len(f.Steps) != 1 {
		return nil, fmt.Errorf("testkit: %q holds a flow of %d steps", path, len(f.Steps))
	}
	return f.Steps[0], nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.RequestURL == "" {
		return errors.New("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		return errors.New("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	if s.RequestFileName != "" && len(s.RequestBody) > 0 {
		return errors.New("requestFileName and requestBody are exclusive")
	}
	if s.Upload != nil && s.Upload.Field == "" {
		return errors.New("upload.field is required")
	}
	for i, m := range s.Mocks {
		if m.MatchURL == "" && s.IsMockRequired {
			return fmt.Errorf("mocks[%d].matchUrl is required with isMockRequired", i)
		}
	}
	return nil
}

// RequestBodyPath resolves requestFileName against the scenario's directory.
func (s *Scenario) RequestBodyPath() string { return s.resolve(s.RequestFileName) }

// ResponseBodyPath resolves responseFileName against the scenario's directory.
func (s *Scenario) ResponseBodyPath() string { return s.resolve(s.ResponseFileName) }

func (s *Scenario) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// expand replaces every {{name}} in v with its captured value.
func expand(v string, vars map[string]string) string {
	if !strings.Contains(v, "{{") {
		return v
	}
	for name, value := range vars {
		v = strings.ReplaceAll(v, "{{"+name+"}}", value)
	}
	return v
}
