// Package media talks to the cobalt resolution API and downloads the media it points at.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrTransport marks network failures, timeouts, non-2xx replies and undecodable bodies.
var ErrTransport = errors.New("transport failure")

// ErrResolver is matched by every Failure.
var ErrResolver = errors.New("resolver reported an error")

// videoQuality is requested on every resolution; cobalt falls back to the best available.
const videoQuality = "1080"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolution is the outcome of a successful round trip to the resolver.
// It is one of Single, Carousel, Failure or Unrecognized.
type Resolution interface {
	resolution()
}

// Item is one downloadable piece of media.
type Item struct {
	URL  string
	Type string
}

// Single is a post with exactly one piece of media.
type Single struct {
	URL string
}

// Carousel is a post with several pieces of media, in post order.
type Carousel struct {
	Items []Item
}

// Failure is an error reported by the resolver itself.
type Failure struct {
	Code    string
	Message string
}

// Unrecognized carries a status value the client does not understand.
type Unrecognized struct {
	Status string
}

func (Single) resolution()       {}
func (Carousel) resolution()     {}
func (Failure) resolution()      {}
func (Unrecognized) resolution() {}

// Error lets a Failure be logged or wrapped like any other error.
func (f Failure) Error() string {
	return fmt.Sprintf("cobalt error: %s - %s", f.Code, f.Message)
}

func (f Failure) Unwrap() error { return ErrResolver }

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	BaseURL      string
	APIKey       string
	BypassHeader string
	BypassValue  string
	UserAgent    string
	Timeout      time.Duration
	// RequestsPerSecond limits outgoing requests when positive.
	RequestsPerSecond float64
}

// Resolver turns social media post URLs into direct media URLs via cobalt.
type Resolver struct {
	client  HTTPClient
	cfg     ResolverConfig
	limiter *rate.Limiter
}

// NewResolver creates a Resolver. A zero timeout defaults to 30 seconds.
func NewResolver(client HTTPClient, cfg ResolverConfig) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	r := &Resolver{client: client, cfg: cfg}
	if cfg.RequestsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return r
}

type resolveRequest struct {
	URL          string `json:"url"`
	VideoQuality string `json:"videoQuality"`
}

type resolveResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Picker []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"picker"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
	Text string `json:"text"`
}

// Resolve asks the resolver for the media behind mediaURL.
// A non-nil error always wraps ErrTransport; resolver-side errors come back as Failure.
func (r *Resolver) Resolve(ctx context.Context, mediaURL string) (Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit: %v", ErrTransport, err)
		}
	}

	body, err := json.Marshal(resolveRequest{URL: mediaURL, VideoQuality: videoQuality})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: post: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: unexpected status %d: %s", ErrTransport, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var decoded resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	return decoded.toResolution(), nil
}

func (r *Resolver) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Api-Key "+r.cfg.APIKey)
	}
	if r.cfg.BypassHeader != "" && r.cfg.BypassValue != "" {
		req.Header.Set(r.cfg.BypassHeader, r.cfg.BypassValue)
	}
}

func (d resolveResponse) toResolution() Resolution {
	switch d.Status {
	case "redirect", "tunnel":
		if d.URL == "" {
			return Failure{Code: "empty", Message: "resolver returned no download url"}
		}
		return Single{URL: d.URL}
	case "picker":
		items := make([]Item, 0, len(d.Picker))
		for _, p := range d.Picker {
			if p.URL == "" {
				continue
			}
			items = append(items, Item{URL: p.URL, Type: p.Type})
		}
		if len(items) == 0 {
			return Failure{Code: "empty", Message: "resolver returned no carousel items"}
		}
		return Carousel{Items: items}
	case "error":
		code := "unknown"
		if d.Error != nil && d.Error.Code != "" {
			code = d.Error.Code
		}
		msg := d.Text
		if msg == "" {
			msg = "Unknown error"
		}
		return Failure{Code: code, Message: msg}
	default:
		return Unrecognized{Status: d.Status}
	}
}
