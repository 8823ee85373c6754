package playground

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/ckwame-jpg/portfolio/clock"
)

// Mode names where a Result came from.
type Mode string

const (
	ModeMock Mode = "mock"
	ModeLive Mode = "live"
)

// Result is one playground run.
type Result struct {
	Status   int
	Body     json.RawMessage
	Duration time.Duration
	Mode     Mode
}

// Runner executes a playground endpoint.
type Runner interface {
	Run(ctx context.Context, ep Endpoint) (Result, error)
}

// MockRunner answers from the catalog's canned responses after a simulated
// network delay.
type MockRunner struct {
	delay func() time.Duration
}

// MockOption configures a MockRunner.
type MockOption func(*MockRunner)

// WithDelay overrides the simulated delay.
func WithDelay(fn func() time.Duration) MockOption {
	return func(m *MockRunner) {
		m.delay = fn
	}
}

// NewMockRunner creates a runner whose delay is uniform in [80ms, 200ms).
func NewMockRunner(opts ...MockOption) *MockRunner {
	m := &MockRunner{delay: func() time.Duration {
		return 80*time.Millisecond + rand.N(120*time.Millisecond)
	}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockRunner) Run(ctx context.Context, ep Endpoint) (Result, error) {
	d := m.delay()
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-t.C:
		}
	}

	body, err := json.Marshal(ep.MockResponse.Body)
	if err != nil {
		return Result{}, fmt.Errorf("encode mock body: %w", err)
	}
	return Result{
		Status:   ep.MockResponse.Status,
		Body:     body,
		Duration: d.Round(time.Millisecond),
		Mode:     ModeMock,
	}, nil
}

// maxBody caps how much of a live response is relayed.
const maxBody = 1 << 20

// defaultTokenLife applies to tokens without an exp claim.
const defaultTokenLife = 15 * time.Minute

// LiveRunner forwards endpoints to the demo service, logging in with the demo
// credentials for endpoints that need a bearer token.
type LiveRunner struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	clock   clock.Clock
	limiter *rate.Limiter

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewLiveRunner creates a runner for the service at baseURL. Outbound calls
// are limited to five per second with a burst of five.
func NewLiveRunner(baseURL string, creds Credentials, httpClient *http.Client, clk clock.Clock) *LiveRunner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &LiveRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    httpClient,
		clock:   clk,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

func (l *LiveRunner) Run(ctx context.Context, ep Endpoint) (Result, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("playground rate limit: %w", err)
	}

	var bearer string
	if ep.RequiresAuth {
		tok, err := l.bearer(ctx)
		if err != nil {
			return Result{}, err
		}
		bearer = tok
	}

	start := l.clock.Now()
	status, body, err := l.do(ctx, ep.Method, ep.Path, ep.Encoding, ep.RequestBody, bearer)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Status:   status,
		Body:     body,
		Duration: l.clock.Now().Sub(start).Round(time.Millisecond),
		Mode:     ModeLive,
	}, nil
}

// bearer returns a cached demo token, logging in again once it expires.
func (l *LiveRunner) bearer(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != "" && l.clock.Now().Before(l.tokenExp) {
		return l.token, nil
	}

	form := map[string]any{"username": l.creds.Email, "password": l.creds.Password}
	status, body, err := l.do(ctx, http.MethodPost, "/login", "form", form, "")
	if err != nil {
		return "", fmt.Errorf("demo login: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("demo login: status %d", status)
	}

	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &login); err != nil || login.AccessToken == "" {
		return "", errors.New("demo login: response has no access_token")
	}

	l.token = login.AccessToken
	l.tokenExp = l.clock.Now().Add(defaultTokenLife)
	if exp, ok := tokenExpiry(login.AccessToken); ok {
		// Log in again 30s before the token expires.
		l.tokenExp = exp.Add(-30 * time.Second)
	}
	return l.token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// playground only needs to know when to log in again.
func tokenExpiry(raw string) (time.Time, bool) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (l *LiveRunner) do(ctx context.Context, method, path, encoding string, payload any, bearer string) (int, json.RawMessage, error) {
	var (
		body        io.Reader
		contentType string
	)
	if payload != nil {
		if encoding == "form" {
			body = strings.NewReader(formValues(payload).Encode())
			contentType = "application/x-www-form-urlencoded"
		} else {
			raw, err := json.Marshal(payload)
			if err != nil {
				return 0, nil, fmt.Errorf("encode request body: %w", err)
			}
			body = bytes.NewReader(raw)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if !json.Valid(raw) {
		raw, _ = json.Marshal(string(raw))
	}
	return resp.StatusCode, raw, nil
}

func formValues(payload any) url.Values {
	v := url.Values{}
	if m, ok := payload.(map[string]any); ok {
		for k, val := range m {
			v.Set(k, fmt.Sprint(val))
		}
	}
	return v
}
