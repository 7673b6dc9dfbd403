package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/client/session"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

// maxResponseBytes caps a decoded response envelope.
const maxResponseBytes = 1 << 20

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Success    bool            `json:"success"`
}

type accessTokenData struct {
	AccessToken string `json:"accessToken"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	store   SessionStore

	mu     sync.Mutex
	tokens session.Tokens
}

// NewHTTPClient builds a client for the gateway at baseURL and restores any
// tokens left by a previous run.
func NewHTTPClient(baseURL string, timeout time.Duration, store SessionStore) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}

	tokens, err := store.Load()
	if err != nil {
		return nil, err
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: timeout},
		store:   store,
		tokens:  tokens,
	}, nil
}

func (c *HTTPClient) Username() string {
	return c.snapshot().Username
}

func (c *HTTPClient) LoggedIn() bool {
	return c.snapshot().LoggedIn()
}

func (c *HTTPClient) Register(ctx context.Context, in RegisterRequest) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.startSession(ctx, "/api/auth/register", body, in.Username)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	return c.startSession(ctx, "/api/auth/login", body, username)
}

// startSession posts credentials and stores the returned token pair.
func (c *HTTPClient) startSession(ctx context.Context, path string, body []byte, username string) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, body, "application/json")
	if err != nil {
		return err
	}

	resp, env, err := c.send(ctx, req)
	if err != nil {
		return err
	}

	tokens, err := tokensFrom(resp, env)
	if err != nil {
		return err
	}
	tokens.Username = username
	return c.remember(tokens)
}

// Refresh trades the stored refresh token for a new pair. The cookie is
// attached explicitly since the CLI has no cookie jar. A rejected token
// ends the local session.
func (c *HTTPClient) Refresh(ctx context.Context) error {
	current := c.snapshot()
	if !current.LoggedIn() {
		return ErrNotLoggedIn
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/refresh-token", nil, "")
	if err != nil {
		return err
	}
	req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: current.RefreshToken})

	resp, env, err := c.send(ctx, req)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			_ = c.forget()
		}
		return err
	}

	tokens, err := tokensFrom(resp, env)
	if err != nil {
		return err
	}
	tokens.Username = current.Username
	return c.remember(tokens)
}

// Logout ends the session on the server and always drops the local tokens.
// A 401 means the server already considers the session over.
func (c *HTTPClient) Logout(ctx context.Context) error {
	if !c.LoggedIn() {
		return ErrNotLoggedIn
	}

	_, err := c.authorized(ctx, http.MethodPost, "/api/auth/logout", nil, "")
	if ferr := c.forget(); ferr != nil {
		return ferr
	}
	if err != nil && !errors.Is(err, common.ErrUnauthorized) {
		return err
	}
	return nil
}

func (c *HTTPClient) Me(ctx context.Context) (*Profile, error) {
	env, err := c.authorized(ctx, http.MethodGet, "/api/auth/me", nil, "")
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %w", common.ErrInternal, err)
	}
	return &p, nil
}

// Upload sends the file at path as multipart form data and returns the
// object name the server assigned.
func (c *HTTPClient) Upload(ctx context.Context, fileType, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("fileType", fileType); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	env, err := c.authorized(ctx, http.MethodPost, "/api/files/upload", buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	var out struct {
		ObjectName string `json:"objectName"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return "", fmt.Errorf("%w: decode upload response: %w", common.ErrInternal, err)
	}
	return out.ObjectName, nil
}

func (c *HTTPClient) FileURL(ctx context.Context, objectName string) (string, error) {
	path := "/api/files/url?objectName=" + url.QueryEscape(objectName)
	env, err := c.authorized(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return "", fmt.Errorf("%w: decode url response: %w", common.ErrInternal, err)
	}
	return out.URL, nil
}

func (c *HTTPClient) DeleteFile(ctx context.Context, objectName string) error {
	body, err := json.Marshal(map[string]string{"objectName": objectName})
	if err != nil {
		return err
	}
	_, err = c.authorized(ctx, http.MethodDelete, "/api/files/delete", body, "application/json")
	return err
}

// authorized performs a bearer-authenticated call. On 401 it refreshes the
// pair once and replays the request with the new access token.
func (c *HTTPClient) authorized(ctx context.Context, method, path string, body []byte, contentType string) (*envelope, error) {
	if !c.LoggedIn() {
		return nil, ErrNotLoggedIn
	}

	env, err := c.doAuthorized(ctx, method, path, body, contentType)
	if err == nil || !errors.Is(err, common.ErrUnauthorized) {
		return env, err
	}

	if rerr := c.Refresh(ctx); rerr != nil {
		if errors.Is(rerr, common.ErrUnauthorized) {
			return nil, fmt.Errorf("session expired, log in again: %w", rerr)
		}
		return nil, rerr
	}
	return c.doAuthorized(ctx, method, path, body, contentType)
}

func (c *HTTPClient) doAuthorized(ctx context.Context, method, path string, body []byte, contentType string) (*envelope, error) {
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+c.snapshot().AccessToken)

	_, env, err := c.send(ctx, req)
	return env, err
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body []byte, contentType string) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send performs the round trip and decodes the envelope. Non-2xx answers
// come back as sentinel errors carrying the server's message.
func (c *HTTPClient) send(ctx context.Context, req *http.Request) (*http.Response, *envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return resp, nil, mapStatus(resp.StatusCode, "")
		}
		return resp, nil, fmt.Errorf("%w: decode response: %w", common.ErrInternal, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return resp, &env, mapStatus(resp.StatusCode, env.Message)
	}
	return resp, &env, nil
}

// tokensFrom reads the access token from the envelope and the refresh
// token from the Set-Cookie header.
func tokensFrom(resp *http.Response, env *envelope) (session.Tokens, error) {
	var data accessTokenData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		return session.Tokens{}, fmt.Errorf("%w: response carries no access token", common.ErrInternal)
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == common.RefreshTokenCookieName && ck.Value != "" {
			return session.Tokens{AccessToken: data.AccessToken, RefreshToken: ck.Value}, nil
		}
	}
	return session.Tokens{}, fmt.Errorf("%w: response carries no refresh cookie", common.ErrInternal)
}

func (c *HTTPClient) snapshot() session.Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *HTTPClient) remember(t session.Tokens) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(t); err != nil {
		return err
	}
	c.tokens = t
	return nil
}

func (c *HTTPClient) forget() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = session.Tokens{}
	return c.store.Clear()
}
