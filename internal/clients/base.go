package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

type Client struct {
	Name    string
	BaseURL *url.URL
	HTTP    *http.Client

	// Tokens holds the bearer token issued at sign-in, keyed by session.
	Tokens session.TokenStore

	now func() time.Time
}

func NewClient(name string, baseURL string, httpClient *http.Client, tokens session.TokenStore) *Client {
	u, err := url.Parse(baseURL)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid %s base url %q: %v", name, baseURL, err))
	}
	return &Client{Name: name, BaseURL: u, HTTP: httpClient, Tokens: tokens, now: time.Now}
}

// NewHTTPClient returns an http.Client whose transport records client spans.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Do issues a request to path under the base URL. The base URL path is kept as a prefix
// and path must already be escaped.
func (c *Client) Do(ctx context.Context, method, path, rawQuery string, body io.Reader, headers http.Header) (*http.Response, error) {
	target := strings.TrimRight(c.BaseURL.String(), "/") + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	for k, vv := range headers {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}

	return c.HTTP.Do(req)
}

// StatusError is a non-2xx answer from the primary backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type callOpts struct {
	authenticated bool
	query         string
}

// doJSON sends in as the JSON body (when non-nil) and decodes a 2xx response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, opts callOpts, in, out any) error {
	headers := http.Header{}
	headers.Set("Accept", "application/json")

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
		headers.Set("Content-Type", "application/json")
	}

	if opts.authenticated {
		tok, err := c.bearer(ctx)
		if err != nil {
			return err
		}
		headers.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.Do(ctx, method, path, opts.query, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return shop.NewAuthError(serr)
		}
		return serr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// bearer loads the session's primary token and rejects it locally once its exp claim has passed.
func (c *Client) bearer(ctx context.Context) (string, error) {
	sid := session.IDFromContext(ctx)
	if sid == "" || c.Tokens == nil {
		return "", shop.NewAuthError(shop.ErrNotAuthenticated)
	}
	tok, err := c.Tokens.Get(ctx, sid, session.ProviderPrimary)
	if errors.Is(err, session.ErrNoToken) {
		return "", shop.NewAuthError(shop.ErrNotAuthenticated)
	}
	if err != nil {
		return "", err
	}
	if expired(tok, c.now()) {
		return "", shop.NewAuthError(shop.ErrTokenExpired)
	}
	return tok, nil
}

// expired reports whether a JWT's exp claim is in the past. Opaque tokens are left to the server.
func expired(tok string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

func (c *Client) storeToken(ctx context.Context, tok string) error {
	sid := session.IDFromContext(ctx)
	if sid == "" {
		return errors.New("no session in context")
	}
	if c.Tokens == nil {
		return errors.New("no token store configured")
	}
	return c.Tokens.Set(ctx, sid, session.ProviderPrimary, tok)
}

func (c *Client) dropToken(ctx context.Context) error {
	sid := session.IDFromContext(ctx)
	if sid == "" || c.Tokens == nil {
		return nil
	}
	return c.Tokens.Delete(ctx, sid, session.ProviderPrimary)
}
