// Package controller talks to the daemon's external-controller REST API.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the controller.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

func New(baseURL, secret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secret:  secret,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type Version struct {
	Version string `json:"version"`
	Meta    bool   `json:"meta"`
}

func (c *Client) Version(ctx context.Context) (Version, error) {
	var v Version
	err := c.do(ctx, http.MethodGet, "/version", nil, nil, &v)
	return v, err
}

// ReloadConfig asks the daemon to load the config file at path.
func (c *Client) ReloadConfig(ctx context.Context, path string) error {
	q := url.Values{"force": {"true"}}
	return c.do(ctx, http.MethodPut, "/configs", q, map[string]string{"path": path}, nil)
}

// UpdateProvider makes the daemon refetch a proxy provider.
func (c *Client) UpdateProvider(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPut, "/providers/proxies/"+url.PathEscape(name), nil, nil, nil)
}

type Provider struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	VehicleType string    `json:"vehicleType"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Proxies     []struct {
		Name string `json:"name"`
	} `json:"proxies"`
}

// Providers lists the daemon's proxy providers sorted by name, leaving out
// the built-in "default" provider and other compatible ones.
func (c *Client) Providers(ctx context.Context) ([]Provider, error) {
	var resp struct {
		Providers map[string]Provider `json:"providers"`
	}
	if err := c.do(ctx, http.MethodGet, "/providers/proxies", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]Provider, 0, len(resp.Providers))
	for name, p := range resp.Providers {
		if p.VehicleType == "Compatible" {
			continue
		}
		if p.Name == "" {
			p.Name = name
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
