package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/zeebo/xxh3"
)

// Remote is a JSONL dataset at an http(s) URL.
type Remote struct {
	client *Client
	url    string
}

// NewRemote binds url to client. A nil client gets the defaults.
func NewRemote(client *Client, url string) *Remote {
	if client == nil {
		client = NewClient(Config{})
	}
	return &Remote{client: client, url: url}
}

// URL returns the configured URL.
func (r *Remote) URL() string { return r.url }

// Name returns the last path segment of the URL. URLs without one are named
// "remote_<hash>.jsonl" so output names stay stable per URL.
func (r *Remote) Name() string { return NameFromURL(r.url) }

// NameFromURL derives a dataset name from a URL.
func NameFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return fmt.Sprintf("remote_%016x.jsonl", xxh3.HashString(raw))
}

// Size returns the Content-Length reported by a HEAD request. Servers that
// omit it make Size fail, which disables configuration persistence for the
// dataset.
func (r *Remote) Size(ctx context.Context) (int64, error) {
	resp, err := r.client.Head(ctx, r.url)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if err := checkStatus(resp, r.url); err != nil {
		return 0, err
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("httpds: %s: no content length", r.url)
	}
	return resp.ContentLength, nil
}

// Open starts a GET and returns the response body.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, r.url); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("httpds: %s: status %d", url, resp.StatusCode)
	}
	return nil
}
