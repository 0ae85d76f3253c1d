package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sitewise-backend/metrics"
	"sitewise-backend/utils"
)

const (
	DefaultAPIURL   = "https://api.github.com"
	DefaultOAuthURL = "https://github.com"
)

// Client talks to the GitHub REST API on behalf of a single token. Use
// WithToken to derive a client for another user; the underlying http.Client is
// shared.
type Client struct {
	APIURL   string
	OAuthURL string
	Token    string
	HTTP     *http.Client
}

func NewClient(apiURL, oauthURL string, httpClient *http.Client) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if oauthURL == "" {
		oauthURL = DefaultOAuthURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		APIURL:   strings.TrimRight(apiURL, "/"),
		OAuthURL: strings.TrimRight(oauthURL, "/"),
		HTTP:     httpClient,
	}
}

func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.Token = token
	return &clone
}

type APIError struct {
	Status           int    `json:"-"`
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

func (e *APIError) StatusCode() int {
	return e.Status
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// escapePath escapes every segment of a repository path, keeping the slashes.
func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

const (
	mediaJSON = "application/vnd.github+json"
	mediaRaw  = "application/vnd.github.raw+json"
)

func (c *Client) do(ctx context.Context, method, path string, params *map[string]string, in, out any) error {
	respBody, err := c.send(ctx, method, path, mediaJSON, params, in)
	if err != nil {
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	err = json.Unmarshal(respBody, out)
	if err != nil {
		return fmt.Errorf("[GITHUB] decoding response of %s %s: %w", method, path, err)
	}

	return nil
}

// send performs the request and returns the raw response body. Statuses of
// 400 and above come back as *APIError.
func (c *Client) send(ctx context.Context, method, path, accept string, params *map[string]string, in any) ([]byte, error) {
	headers := map[string]string{
		"Accept": accept,
	}
	if c.Token != "" {
		headers["Authorization"] = "Bearer " + c.Token
	}

	var body *[]byte
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("[GITHUB] encoding %s %s: %w", method, path, err)
		}
		body = &payload
	}

	resp, err := utils.Request(ctx, c.HTTP, method, c.APIURL+path, &headers, params, body)
	if err != nil {
		metrics.GithubRequestCounter.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("[GITHUB] %s %s: %w", method, path, err)
	}

	defer resp.Body.Close()

	metrics.GithubRequestCounter.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[GITHUB] reading response of %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		// Non-JSON error bodies keep the status text as the message.
		_ = json.Unmarshal(respBody, apiErr)
		return nil, apiErr
	}

	return respBody, nil
}
