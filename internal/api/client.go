// Package api is the typed client for the expense backend. Every call goes
// through the gateway; GET responses are cached by path and mutations drop
// the cached paths they affect.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"budgetbook/internal/cache"
	"budgetbook/internal/gateway"
	"budgetbook/internal/log"
)

// Sender is the part of the gateway the client uses.
type Sender interface {
	Send(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

type Client struct {
	gw     Sender
	cache  cache.Cache[[]byte]
	logger *log.Logger
	events *log.Events
}

// New builds a client. A nil cache disables caching.
func New(gw Sender, c cache.Cache[[]byte], logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentAPI)
	return &Client{gw: gw, cache: c, logger: logger, events: log.NewEvents(logger)}
}

// Forget empties the response cache.
func (c *Client) Forget() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.cache != nil {
		if body, ok := c.cache.Get(path); ok {
			return decode(body, path, out)
		}
	}
	res, err := c.gw.Send(ctx, &gateway.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Set(path, res.Body)
	}
	return decode(res.Body, path, out)
}

// send issues a JSON request and drops the cached prefixes on success.
func (c *Client) send(ctx context.Context, method, path string, body, out any, skipRecovery bool, invalidate ...string) error {
	req, err := gateway.NewJSONRequest(method, path, body)
	if err != nil {
		return err
	}
	req.SkipRecovery = skipRecovery
	return c.do(ctx, req, out, invalidate...)
}

func (c *Client) do(ctx context.Context, req *gateway.Request, out any, invalidate ...string) error {
	res, err := c.gw.Send(ctx, req)
	if err != nil {
		return err
	}
	c.invalidate(invalidate...)
	if out == nil || len(res.Body) == 0 {
		return nil
	}
	return decode(res.Body, req.Path, out)
}

func (c *Client) invalidate(prefixes ...string) {
	if c.cache == nil {
		return
	}
	for _, p := range prefixes {
		c.cache.DeletePrefix(p)
	}
}

func decode(body []byte, path string, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// unwrap decodes body[key] into out when body is an object carrying key,
// else the whole body. The backend is not consistent about wrapping.
func unwrap(body json.RawMessage, key string, out any) error {
	var obj map[string]json.RawMessage
	if json.Unmarshal(body, &obj) == nil {
		if inner, ok := obj[key]; ok {
			return json.Unmarshal(inner, out)
		}
	}
	return json.Unmarshal(body, out)
}

func seg(s string) string { return url.PathEscape(s) }
