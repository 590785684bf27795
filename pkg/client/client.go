// Package client talks to the resource server on behalf of a device-local
// cache. Fetch is the main entry point: it checks the server's current
// version, serves from cache when the cached copy is still valid, and
// downloads (and caches) fresh payloads otherwise.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fcanovai/rescache/internal/logger"
	"github.com/fcanovai/rescache/pkg/mempool"
	"github.com/fcanovai/rescache/pkg/rescache"
	"github.com/fcanovai/rescache/pkg/server/store"
)

// ErrNotFound is returned when the server does not know the resource.
var ErrNotFound = errors.New("client: resource not found")

// DefaultTimeout bounds each HTTP request when no custom http.Client is
// supplied.
const DefaultTimeout = 30 * time.Second

// Client fetches resources from the server, keeping a local cache warm.
type Client struct {
	baseURL string
	cache   *rescache.Cache
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL. The cache may be nil; the
// client then fetches payloads without caching them.
func New(baseURL string, cache *rescache.Cache, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type resourceEnvelope struct {
	ResourceID string     `json:"resource_id"`
	Data       string     `json:"data"`
	Encoding   string     `json:"encoding"`
	Metadata   store.Info `json:"metadata"`
}

type versionResponse struct {
	ResourceID string `json:"resource_id"`
	Version    uint32 `json:"version"`
}

type listResponse struct {
	Resources []store.Info `json:"resources"`
	Count     int          `json:"count"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Fetch returns the payload for id, preferring the local cache.
//
// The server's current version is checked first; a cached copy at or above
// that version is served without touching the payload endpoint. Otherwise
// the payload is downloaded and stored. If the cache cannot hold the payload
// the freshly downloaded bytes are still returned, so callers are never
// starved by a full pool.
func (c *Client) Fetch(ctx context.Context, id string) ([]byte, error) {
	if c.cache != nil {
		version, err := c.Version(ctx, id)
		if err != nil {
			return nil, err
		}

		if c.cache.IsValid(id, version) {
			if data, ok := c.cache.Get(id); ok {
				logger.Debug("serving resource from cache",
					logger.KeyResourceID, id, logger.KeyVersion, version)
				return data, nil
			}
		}
	}

	env, err := c.download(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode payload for %q: %w", id, err)
	}

	if c.cache != nil {
		meta := env.Metadata
		err := c.cache.Store(id, data, meta.Version, meta.Priority, meta.Type)
		if err != nil {
			if errors.Is(err, mempool.ErrPoolExhausted) {
				logger.Warn("cache full, serving resource uncached",
					logger.KeyResourceID, id, logger.KeySize, len(data))
			} else {
				logger.Warn("failed to cache resource",
					logger.KeyResourceID, id, logger.KeyError, err)
			}
			return data, nil
		}
		c.cache.UpdateMetadata(id, meta.Version, meta.Hash)
	}

	return data, nil
}

// Version asks the server for the current version of id.
func (c *Client) Version(ctx context.Context, id string) (uint32, error) {
	var out versionResponse
	if err := c.getJSON(ctx, "/api/resources/"+id+"/version", &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

// Upload pushes a payload to the server. The server assigns the version.
func (c *Client) Upload(ctx context.Context, id string, data []byte, resType string, priority uint8) (store.Info, error) {
	body, err := json.Marshal(map[string]any{
		"resource_id": id,
		"data":        base64.StdEncoding.EncodeToString(data),
		"type":        resType,
		"priority":    priority,
	})
	if err != nil {
		return store.Info{}, fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/resources", bytes.NewReader(body))
	if err != nil {
		return store.Info{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return store.Info{}, fmt.Errorf("upload %q: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return store.Info{}, c.errorFrom(resp)
	}

	var out struct {
		Status   string     `json:"status"`
		Metadata store.Info `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return store.Info{}, fmt.Errorf("decode upload response: %w", err)
	}
	return out.Metadata, nil
}

// List returns metadata for the server's resources, optionally filtered by
// type.
func (c *Client) List(ctx context.Context, resType string) ([]store.Info, error) {
	path := "/api/resources"
	if resType != "" {
		path += "?type=" + resType
	}

	var out listResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Resources, nil
}

// Info returns the server-side metadata for id without downloading the
// payload.
func (c *Client) Info(ctx context.Context, id string) (store.Info, error) {
	var out store.Info
	if err := c.getJSON(ctx, "/api/resources/"+id+"/info", &out); err != nil {
		return store.Info{}, err
	}
	return out, nil
}

// Delete removes id from the server and drops any cached copy.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/resources/"+id, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFrom(resp)
	}

	if c.cache != nil {
		c.cache.Remove(id)
	}
	return nil
}

// Stats returns the server's storage statistics.
func (c *Client) Stats(ctx context.Context) (store.Stats, error) {
	var out store.Stats
	if err := c.getJSON(ctx, "/api/stats", &out); err != nil {
		return store.Stats{}, err
	}
	return out, nil
}

// Cache exposes the client's local cache, which may be nil.
func (c *Client) Cache() *rescache.Cache {
	return c.cache
}

func (c *Client) download(ctx context.Context, id string) (resourceEnvelope, error) {
	var env resourceEnvelope
	if err := c.getJSON(ctx, "/api/resources/"+id, &env); err != nil {
		return resourceEnvelope{}, err
	}
	if env.Encoding != "base64" {
		return resourceEnvelope{}, fmt.Errorf("unexpected payload encoding %q for %q", env.Encoding, id)
	}
	return env, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFrom(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}

// errorFrom maps an error response to a typed error, preserving the
// server-supplied message when one is present.
func (c *Client) errorFrom(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var out errorResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Message != "" {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, out.Message)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, out.Message)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
