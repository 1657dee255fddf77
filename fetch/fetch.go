// Package fetch resolves source locations into raw bytes.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/d1nch8g/ample/source"
)

// Sentinel errors
var (
	ErrUnsupportedScheme = errors.New("unsupported location scheme")
)

// HTTP fetches http and https locations
type HTTP struct {
	HTTPClient *http.Client
}

var _ source.Fetcher = (*HTTP)(nil)

// NewHTTP creates an HTTP fetcher with the given client timeout
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a GET and returns the response body
func (h *HTTP) Fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s failed with status %d: %s", location, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}

// File reads local paths and file:// URLs
type File struct{}

var _ source.Fetcher = File{}

// Fetch reads the file at location
func (File) Fetch(ctx context.Context, location string) ([]byte, error) {
	p := location
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid file location: %w", err)
		}
		p = u.Path
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// Mux routes a location to the fetcher registered for its scheme. Locations
// without a scheme go to the fetcher registered under "".
type Mux struct {
	fetchers map[string]source.Fetcher
}

var _ source.Fetcher = (*Mux)(nil)

// NewMux creates an empty Mux
func NewMux() *Mux {
	return &Mux{fetchers: make(map[string]source.Fetcher)}
}

// Handle registers a fetcher for scheme
func (m *Mux) Handle(scheme string, f source.Fetcher) *Mux {
	m.fetchers[strings.ToLower(scheme)] = f
	return m
}

// Fetch dispatches on the location scheme
func (m *Mux) Fetch(ctx context.Context, location string) ([]byte, error) {
	f, ok := m.fetchers[scheme(location)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, location)
	}
	return f.Fetch(ctx, location)
}

func scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	// Single letter schemes are Windows drive letters
	if len(u.Scheme) <= 1 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
