// Package mgmt is the control-plane client for the broker's management
// HTTP API: virtual hosts, permissions, vhost metadata and queue inspection.
package mgmt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/dqtprobe/internal/common"
	"github.com/loykin/dqtprobe/internal/httpc"
	"github.com/loykin/dqtprobe/internal/outcome"
	"github.com/tidwall/gjson"
)

type Config struct {
	// URL is the management API base, e.g. http://localhost:15672
	URL      string
	Username string
	Password string
	// Timeout bounds each request; zero imposes none.
	Timeout   time.Duration
	TlsConfig *tls.Config
}

// Client issues administrative commands against the management API.
// Failures surface as *outcome.BrokerError (structured, non-2xx responses)
// or *outcome.TransportError (the request never produced a response).
type Client struct {
	http   *resty.Client
	logger *common.Logger
}

func New(cfg Config) *Client {
	h := httpc.Httpc{
		BaseURL:   strings.TrimRight(cfg.URL, "/"),
		Username:  cfg.Username,
		Password:  cfg.Password,
		Timeout:   cfg.Timeout,
		TlsConfig: cfg.TlsConfig,
	}
	return &Client{
		http:   h.New(),
		logger: common.GetLogger().WithComponent("mgmt"),
	}
}

// Vhost is one entry of the vhost listing.
type Vhost struct {
	Name             string
	DefaultQueueType string
}

// permissions is the management API body for a permission grant.
type permissions struct {
	Configure string `json:"configure"`
	Write     string `json:"write"`
	Read      string `json:"read"`
}

// CreateVhost creates a virtual host. Re-creating an existing vhost is
// accepted by the API and treated as success.
func (c *Client) CreateVhost(ctx context.Context, name string) error {
	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{}).
		Put("/api/vhosts/" + url.PathEscape(name))
	return c.check("create vhost", resp, err)
}

// DeleteVhost removes a virtual host. Absence is not an error: a 404 from
// the API reports the vhost already gone, which is the desired end state.
func (c *Client) DeleteVhost(ctx context.Context, name string) error {
	resp, err := c.http.R().SetContext(ctx).
		Delete("/api/vhosts/" + url.PathEscape(name))
	if err == nil && resp.StatusCode() == 404 {
		c.logger.Debug("vhost already absent", "vhost", name)
		return nil
	}
	return c.check("delete vhost", resp, err)
}

// GrantPermissions grants the user the given configure/write/read patterns
// on the vhost.
func (c *Client) GrantPermissions(ctx context.Context, vhost, user, configure, write, read string) error {
	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(permissions{Configure: configure, Write: write, Read: read}).
		Put("/api/permissions/" + url.PathEscape(vhost) + "/" + url.PathEscape(user))
	return c.check("grant permissions", resp, err)
}

// DefaultQueueType reads the vhost's default_queue_type metadata field.
// The second return reports whether the field is set at all.
func (c *Client) DefaultQueueType(ctx context.Context, vhost string) (string, bool, error) {
	resp, err := c.http.R().SetContext(ctx).
		Get("/api/vhosts/" + url.PathEscape(vhost))
	if cerr := c.check("read vhost metadata", resp, err); cerr != nil {
		return "", false, cerr
	}
	body := resp.Body()
	// Older API versions expose the field at the top level, newer ones
	// under metadata; check both.
	for _, path := range []string{"default_queue_type", "metadata.default_queue_type"} {
		res := gjson.GetBytes(body, path)
		if res.Exists() && res.Type != gjson.Null && res.String() != "" {
			return res.String(), true, nil
		}
	}
	return "", false, nil
}

// SetDefaultQueueType merges the default_queue_type metadata field into the
// vhost. The API accepts the literal value as-is, which is exactly how the
// problematic "undefined" string ends up stored.
func (c *Client) SetDefaultQueueType(ctx context.Context, vhost, value string) error {
	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"default_queue_type": value}).
		Put("/api/vhosts/" + url.PathEscape(vhost))
	return c.check("set default_queue_type", resp, err)
}

// QueueArguments returns the argument table stored for a queue. An absent
// argument key means the broker recorded no value for it.
func (c *Client) QueueArguments(ctx context.Context, vhost, queue string) (map[string]any, error) {
	resp, err := c.http.R().SetContext(ctx).
		Get("/api/queues/" + url.PathEscape(vhost) + "/" + url.PathEscape(queue))
	if cerr := c.check("inspect queue", resp, err); cerr != nil {
		return nil, cerr
	}
	args := map[string]any{}
	gjson.GetBytes(resp.Body(), "arguments").ForEach(func(key, value gjson.Result) bool {
		args[key.String()] = value.Value()
		return true
	})
	return args, nil
}

// ListVhosts returns all virtual hosts with their default_queue_type field.
func (c *Client) ListVhosts(ctx context.Context) ([]Vhost, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/api/vhosts")
	if cerr := c.check("list vhosts", resp, err); cerr != nil {
		return nil, cerr
	}
	var out []Vhost
	gjson.ParseBytes(resp.Body()).ForEach(func(_, v gjson.Result) bool {
		dqt := v.Get("default_queue_type")
		if !dqt.Exists() {
			dqt = v.Get("metadata.default_queue_type")
		}
		out = append(out, Vhost{
			Name:             v.Get("name").String(),
			DefaultQueueType: dqt.String(),
		})
		return true
	})
	return out, nil
}

// Ping probes the management API; used to wait for broker readiness.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/overview")
	return c.check("overview", resp, err)
}

// check maps a resty response into the harness error taxonomy: transport
// errors keep their cause, non-2xx statuses become structured broker errors
// carrying the HTTP status as condition code.
func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &outcome.TransportError{Op: op, Err: err}
	}
	if resp.IsSuccess() {
		return nil
	}
	return &outcome.BrokerError{
		Code:   resp.StatusCode(),
		Reason: fmt.Sprintf("%s: %s", op, apiReason(resp)),
	}
}

// apiReason extracts the error/reason fields the management API returns on
// failures, falling back to the HTTP status line.
func apiReason(resp *resty.Response) string {
	body := resp.Body()
	e := gjson.GetBytes(body, "error").String()
	r := gjson.GetBytes(body, "reason").String()
	switch {
	case e != "" && r != "":
		return e + ": " + r
	case e != "":
		return e
	case r != "":
		return r
	default:
		return resp.Status()
	}
}
