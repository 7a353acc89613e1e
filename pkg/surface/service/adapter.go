// Package service drives the HTTP surface: a supervised server process and
// one GET /<user> per case, where status 200 is success.
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/openapi"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/surface"
)

// Adapter issues card requests against a server it owns.
type Adapter struct {
	lifecycle *Lifecycle
	client    *resty.Client
	user      string
	logger    logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithUser sets the user requested when a case names none.
func WithUser(user string) Option {
	return func(a *Adapter) {
		a.user = user
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClient replaces the request client. Its base URL must point at the
// supervised server.
func WithClient(c *resty.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// New builds an adapter over lifecycle with requests sent to baseURL.
func New(lifecycle *Lifecycle, baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		lifecycle: lifecycle,
		client:    resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		user:      "octocat",
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *Adapter) Mode() model.Mode {
	return model.ModeWeb
}

// Start brings the server up; the adapter becomes its owner.
func (a *Adapter) Start(ctx context.Context) error {
	return a.lifecycle.Start(ctx, a)
}

// Stop tears the server down.
func (a *Adapter) Stop() error {
	defer a.client.GetClient().CloseIdleConnections()
	return a.lifecycle.Stop(a)
}

// Lifecycle exposes the supervised server state.
func (a *Adapter) Lifecycle() *Lifecycle {
	return a.lifecycle
}

// Preflight checks that the running server describes the card route.
func (a *Adapter) Preflight(ctx context.Context) error {
	resp, err := a.client.R().SetContext(ctx).Get("/openapi.json")
	if err != nil {
		return fmt.Errorf("surface/service: fetch description: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("surface/service: fetch description: status %d", resp.StatusCode())
	}
	doc, err := openapi.Load(ctx, resp.Body())
	if err != nil {
		return err
	}
	if _, ok := openapi.Operations(doc)[openapi.RenderOperation]; !ok {
		return fmt.Errorf("surface/service: server does not describe %s", openapi.RenderOperation)
	}
	return nil
}

// Run requests the card for tc. Nothing is sent unless the server is
// Ready and its process is still running.
func (a *Adapter) Run(ctx context.Context, tc model.TestCase) surface.Result {
	inv := surface.NewInvocation(tc, model.ModeWeb)
	if err := a.lifecycle.Alive(); err != nil {
		return inv.Fail(err)
	}
	if phase := a.lifecycle.Phase(); phase != Ready {
		err := a.lifecycle.Failure()
		if err == nil {
			err = fmt.Errorf("surface/service: server is %s", phase)
		}
		return inv.Fail(err)
	}

	req, err := options.Normalize(options.Raw(tc.Inputs))
	if err != nil {
		return inv.Fail(err)
	}
	user := req.User
	if user == "" {
		user = a.user
	}
	req.User = ""
	query := Query(req)

	ctx, cancel := surface.WithTimeout(ctx, tc)
	defer cancel()

	if err := inv.Dispatch(); err != nil {
		return inv.Fail(err)
	}
	pending := a.client.R().SetContext(ctx).SetQueryParamsFromValues(query)
	if err := inv.Await(); err != nil {
		return inv.Fail(err)
	}
	resp, err := pending.Get("/" + url.PathEscape(user))
	if err != nil {
		if exit := a.lifecycle.Alive(); exit != nil {
			return inv.Fail(exit)
		}
		return inv.Fail(fmt.Errorf("surface/service: GET /%s: %w", user, err))
	}
	if resp.StatusCode() != http.StatusOK {
		a.logger.Warn("card request failed", "case", tc.Name, "status", resp.StatusCode())
		res := inv.Fail(fmt.Errorf("surface/service: GET /%s: status %d: %s", user, resp.StatusCode(), strings.TrimSpace(resp.String())))
		res.Status = resp.StatusCode()
		return res
	}
	res := inv.Succeed(resp.String())
	res.Status = resp.StatusCode()
	return res
}

// Query denormalizes req into query parameters: plugin option paths come
// back as plugin_<id>_<path> with underscores for separators.
func Query(req model.Request) url.Values {
	values := url.Values{}
	for key, value := range options.Strings(options.Denormalize(req)) {
		values.Set(key, value)
	}
	return values
}
