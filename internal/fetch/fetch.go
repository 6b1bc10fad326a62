// Package fetch loads subscription payloads from http(s) URLs or local files.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxBytes     = 5 * 1024 * 1024
	DefaultMaxRedirects = 5
	// DefaultUserAgent makes most providers answer with a full config when
	// they can, and with a link list otherwise.
	DefaultUserAgent = "clash.meta"
)

type Options struct {
	Timeout      time.Duration
	MaxBytes     int64
	MaxRedirects int
	UserAgent    string
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxBytes == 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// Error describes a failed fetch. Status is the upstream HTTP status when one
// was received.
type Error struct {
	URL    string
	Status int
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Timeout reports whether the fetch failed because a deadline passed.
func (e *Error) Timeout() bool {
	var ne net.Error
	return (errors.As(e.Cause, &ne) && ne.Timeout()) || errors.Is(e.Cause, context.DeadlineExceeded)
}

var (
	errTooManyRedirects  = errors.New("too many redirects")
	errRedirectBadScheme = errors.New("redirect target scheme is not http/https")
)

// IsRemote reports whether source names an http(s) URL.
func IsRemote(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Bytes loads source, which is an http(s) URL, a file:// URL or a local path.
func Bytes(ctx context.Context, source string, opt Options) ([]byte, error) {
	opt = opt.withDefaults()
	source = strings.TrimSpace(source)
	if IsRemote(source) {
		return httpGet(ctx, source, opt)
	}
	path := source
	if u, err := url.Parse(source); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	return readFile(path, opt.MaxBytes)
}

func readFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{URL: path, Reason: "open file", Cause: err}
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, &Error{URL: path, Reason: "read file", Cause: err}
	}
	if int64(len(body)) > maxBytes {
		return nil, &Error{URL: path, Reason: fmt.Sprintf("payload too large (>%d bytes)", maxBytes)}
	}
	return body, nil
}

func httpGet(ctx context.Context, rawURL string, opt Options) ([]byte, error) {
	client := &http.Client{
		Timeout:   opt.Timeout,
		Transport: http.DefaultTransport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > opt.MaxRedirects {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Reason: "build request", Cause: err}
	}
	req.Header.Set("User-Agent", opt.UserAgent)
	req.Header.Set("Accept-Encoding", "zstd, gzip")

	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		switch {
		case errors.Is(err, errTooManyRedirects):
			return nil, &Error{URL: rawURL, Reason: fmt.Sprintf("more than %d redirects", opt.MaxRedirects), Cause: err}
		case errors.Is(err, errRedirectBadScheme):
			return nil, &Error{URL: rawURL, Reason: "redirect to non-http scheme", Cause: err}
		}
		return nil, &Error{URL: rawURL, Reason: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	reader, closeReader, err := decodeBody(resp)
	if err != nil {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Reason: "decode body", Cause: err}
	}
	defer closeReader()
	body, err := io.ReadAll(io.LimitReader(reader, opt.MaxBytes+1))
	if err != nil {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Reason: "read body", Cause: err}
	}
	if int64(len(body)) > opt.MaxBytes {
		return nil, &Error{URL: rawURL, Status: resp.StatusCode, Reason: fmt.Sprintf("payload too large (>%d bytes)", opt.MaxBytes)}
	}
	return body, nil
}

// decodeBody unwraps the Content-Encoding the request advertised. The size cap
// applies to the decoded stream.
func decodeBody(resp *http.Response) (io.Reader, func(), error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, func() {}, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}
