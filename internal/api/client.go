package api

// Package api implements the REST client for the marketplace identity
// server. It speaks the /auth/* contract; authorization headers for
// protected endpoints are injected by the authenticated transport.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/proserve/proserve-client/config"
	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/ports"
)

// Identity server endpoints.
const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	refreshPath  = "/auth/refresh"
	mePath       = "/auth/me"
	logoutPath   = "/auth/logout"
)

// Options groups dependencies for Client.
type Options struct {
	Config     config.APIConfig
	HTTPClient *http.Client // required; usually carries the authenticated transport
	Logger     *slog.Logger // optional
}

// Client is the identity server REST client. It implements
// ports.IdentityAPI and ports.TokenRefresher.
type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
	logger    *slog.Logger
}

var (
	_ ports.IdentityAPI    = (*Client)(nil)
	_ ports.TokenRefresher = (*Client)(nil)
)

// NewClient constructs a new identity server client.
func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		panic("HTTPClient is required")
	}
	return &Client{
		baseURL:   opts.Config.BaseURL,
		userAgent: opts.Config.UserAgent,
		httpc:     opts.HTTPClient,
		logger:    opts.Logger,
	}
}

// Login exchanges credentials for a token pair. A rejected login maps to
// domainauth.ErrInvalidCredentials and is never retried.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (domainauth.TokenPair, error) {
	body, err := json.Marshal(map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("marshal login request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, loginPath, bytes.NewReader(body))
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var pair domainauth.TokenPair
	if doErr := c.do(req, &pair, domainauth.ErrInvalidCredentials); doErr != nil {
		return domainauth.TokenPair{}, fmt.Errorf("login: %w", doErr)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return domainauth.TokenPair{}, errors.New("login: malformed token response")
	}
	return pair, nil
}

// Register submits user fields plus optional identity-verification
// documents as a multipart payload. It never establishes a session.
func (c *Client) Register(ctx context.Context, reg ports.Registration) (ports.RegisterResult, error) {
	body, contentType, err := encodeRegistration(reg)
	if err != nil {
		return ports.RegisterResult{}, fmt.Errorf("encode registration: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, registerPath, bytes.NewReader(body))
	if err != nil {
		return ports.RegisterResult{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var result struct {
		Message string `json:"message"`
	}
	if doErr := c.do(req, &result, domainauth.ErrInvalidCredentials); doErr != nil {
		return ports.RegisterResult{}, fmt.Errorf("register: %w", doErr)
	}
	return ports.RegisterResult{Message: result.Message}, nil
}

// Refresh exchanges the refresh token for a new token pair. The request
// authenticates with the refresh token itself; the explicit header also
// keeps the authenticated transport from injecting the access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domainauth.TokenPair, error) {
	if refreshToken == "" {
		return domainauth.TokenPair{}, fmt.Errorf("refresh: %w", domainauth.ErrSessionExpired)
	}

	req, err := c.newRequest(ctx, http.MethodPost, refreshPath, http.NoBody)
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	var pair domainauth.TokenPair
	if doErr := c.do(req, &pair, domainauth.ErrSessionExpired); doErr != nil {
		return domainauth.TokenPair{}, fmt.Errorf("refresh: %w", doErr)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return domainauth.TokenPair{}, errors.New("refresh: malformed token response")
	}
	return pair, nil
}

// Me fetches the authenticated identity.
func (c *Client) Me(ctx context.Context) (domainauth.Identity, error) {
	req, err := c.newRequest(ctx, http.MethodGet, mePath, http.NoBody)
	if err != nil {
		return domainauth.Identity{}, err
	}

	var ident domainauth.Identity
	if doErr := c.do(req, &ident, domainauth.ErrSessionExpired); doErr != nil {
		return domainauth.Identity{}, fmt.Errorf("fetch identity: %w", doErr)
	}
	return ident, nil
}

// Logout asks the server to invalidate the session. Callers treat it as
// best-effort; client-side logout proceeds regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, logoutPath, http.NoBody)
	if err != nil {
		return err
	}
	if doErr := c.do(req, nil, domainauth.ErrSessionExpired); doErr != nil {
		return fmt.Errorf("logout: %w", doErr)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// do issues the request and decodes a 2xx JSON body into out (when out is
// non-nil). A 401 maps to kind401; other 4xx carry the server message.
func (c *Client) do(req *http.Request, out any, kind401 error) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		// Session expiry surfaced by the transport passes through;
		// everything else is a transport-level failure.
		if errors.Is(err, domainauth.ErrSessionExpired) {
			return domainauth.ErrSessionExpired
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && c.logger != nil {
			c.logger.Warn("close response body failed", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp, kind401)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}

func (c *Client) errorFromResponse(resp *http.Response, kind401 error) error {
	var payload struct {
		Message string `json:"message"`
	}
	// The message is advisory; a non-JSON error body is still an *Error.
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	apiErr := &Error{StatusCode: resp.StatusCode, Message: payload.Message}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr.Kind = kind401
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && kind401 == domainauth.ErrInvalidCredentials:
		// Login/register rejections arrive as assorted 4xx codes.
		apiErr.Kind = domainauth.ErrInvalidCredentials
	}

	if c.logger != nil {
		c.logger.Debug("identity server error",
			slog.String("path", resp.Request.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("message", payload.Message),
		)
	}
	return apiErr
}

// encodeRegistration builds the multipart form: user fields plus indexed
// document_N / document_type_N parts, matching the server contract.
func encodeRegistration(reg ports.Registration) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"username":     reg.Username,
		"password":     reg.Password,
		"email":        reg.Email,
		"name":         reg.Name,
		"phone_number": reg.PhoneNumber,
		"role":         string(reg.Role),
		"description":  reg.Description,
		"experience":   reg.Experience,
		"service_type": reg.ServiceType,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}

	for i, doc := range reg.Documents {
		part, err := w.CreateFormFile(fmt.Sprintf("document_%d", i), doc.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create document part %d: %w", i, err)
		}
		if _, copyErr := io.Copy(part, doc.Content); copyErr != nil {
			return nil, "", fmt.Errorf("copy document %d: %w", i, copyErr)
		}
		if fieldErr := w.WriteField(fmt.Sprintf("document_type_%d", i), doc.Type); fieldErr != nil {
			return nil, "", fmt.Errorf("write document type %d: %w", i, fieldErr)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
