// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/spool/internal/extract"
)

// MockExtractor is a test double for [extract.Extractor]. ExtractFunc
// decides each call's result; calls are recorded with their options.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, locator string, opts extract.Options) (*extract.Result, error)
	Filename    string

	mu    sync.Mutex
	calls []ExtractCall
}

// ExtractCall records one Extract invocation.
type ExtractCall struct {
	Locator string
	Opts    extract.Options
}

func (m *MockExtractor) Extract(ctx context.Context, locator string, opts extract.Options) (*extract.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ExtractCall{Locator: locator, Opts: opts})
	m.mu.Unlock()

	if m.ExtractFunc == nil {
		return nil, errors.New("no extract function configured")
	}
	return m.ExtractFunc(ctx, locator, opts)
}

func (m *MockExtractor) PrepareFilename(r *extract.Result) string {
	if m.Filename != "" {
		return m.Filename
	}
	return r.Filename
}

// Calls returns a snapshot of recorded invocations.
func (m *MockExtractor) Calls() []ExtractCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExtractCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// HeaderClient builds an *http.Client whose HEAD responses carry the given
// headers.
func HeaderClient(header http.Header) *http.Client {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       http.NoBody,
	}
	return &http.Client{Transport: NewMockRoundTripper(resp, nil)}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
