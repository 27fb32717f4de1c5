package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/adamwoolhether/ajax/client/async"
	"github.com/adamwoolhether/ajax/client/throttle"
)

const tracerName = "github.com/adamwoolhether/ajax/client"

// ErrClosed is delivered to listeners of requests issued after [Client.Close].
var ErrClosed = errors.New("client closed")

// Handle tracks one issued request.
type Handle = async.Handle[Outcome]

// Client issues asynchronous requests. Every request runs on its own
// goroutine; its listener is always invoked through the client's
// [Executor], never on the goroutine that issued it.
type Client struct {
	transport Transport
	exec      Executor
	group     *async.Group[Outcome]
	logger    *slog.Logger

	loop      *Loop // owned; nil when WithExecutor was given
	loopDone  chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Build creates a [Client] from the given options.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		group:  async.NewGroup[Outcome](),
		logger: slog.Default(),
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	switch {
	case opts.transport != nil:
		client.transport = opts.transport
	default:
		t, err := buildHTTPTransport(opts, client.logger)
		if err != nil {
			return nil, err
		}
		client.transport = t
	}

	if opts.executor != nil {
		client.exec = opts.executor
	} else {
		client.loop = NewLoop(client.logger)
		client.loopDone = make(chan struct{})
		client.exec = client.loop
		go func() {
			defer close(client.loopDone)
			_ = client.loop.Run(context.Background())
		}()
	}

	return client, nil
}

func buildHTTPTransport(opts options, logger *slog.Logger) (*httpTransport, error) {
	hc := &http.Client{}
	if opts.client != nil {
		cpy := *opts.client
		hc = &cpy
	}

	if opts.timeout != nil {
		hc.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case hc.Transport != nil:
		transport = hc.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	hc.Transport = transport

	tracer := opts.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &httpTransport{c: hc, tracer: tracer, logger: logger}, nil
}

// Query starts a new request builder bound to the background context.
func (c *Client) Query() *Query {
	return c.QueryContext(context.Background())
}

// QueryContext starts a new request builder. ctx is the parent of every
// request the builder issues.
func (c *Client) QueryContext(ctx context.Context) *Query {
	return &Query{c: c, ctx: ctx, listener: nopListener}
}

// Get issues a GET request on a fresh [Query].
func (c *Client) Get(rawURL string, l Listener) *Query {
	return c.Query().Get(rawURL, l)
}

// GetQuery issues a GET request with a pre-encoded query string on a fresh [Query].
func (c *Client) GetQuery(rawURL, query string, l Listener) *Query {
	return c.Query().GetQuery(rawURL, query, l)
}

// GetParams issues a GET request with encoded params on a fresh [Query].
func (c *Client) GetParams(rawURL string, params []Param, l Listener) *Query {
	return c.Query().GetParams(rawURL, params, l)
}

// Post issues a POST request with an empty body on a fresh [Query].
func (c *Client) Post(rawURL string, l Listener) *Query {
	return c.Query().Post(rawURL, l)
}

// PostString issues a POST request with a pre-encoded body on a fresh [Query].
func (c *Client) PostString(rawURL, body string, l Listener) *Query {
	return c.Query().PostString(rawURL, body, l)
}

// PostParams issues a POST request with encoded params on a fresh [Query].
func (c *Client) PostParams(rawURL string, params []Param, l Listener) *Query {
	return c.Query().PostParams(rawURL, params, l)
}

// Request issues a GET or POST request, chosen by method, on a fresh [Query].
func (c *Client) Request(rawURL, method string, params []Param, l Listener) *Query {
	return c.Query().Request(rawURL, method, params, l)
}

// Param encodes params. It's just a convenience method that wraps the public Encode func.
func (c *Client) Param(params ...Param) string {
	return Encode(params...)
}

// InFlight reports how many requests have not yet produced an outcome.
func (c *Client) InFlight() int {
	return c.group.InFlight()
}

// Wait blocks until every issued request has produced its outcome and
// handed it to the executor, or until ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	return c.group.Wait(ctx)
}

// Close rejects new requests, waits for in-flight ones, and, when the
// client owns its callback loop, runs the remaining callbacks and stops it.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.group.Shutdown()
		if err := c.group.Wait(ctx); err != nil {
			c.closeErr = fmt.Errorf("waiting for in-flight requests: %w", err)
			return
		}

		if c.loop == nil {
			return
		}

		c.loop.Stop()
		select {
		case <-c.loopDone:
		case <-ctx.Done():
			c.closeErr = fmt.Errorf("stopping callback loop: %w", ctx.Err())
		}
	})

	return c.closeErr
}

// issue snapshots the request and starts its single unit of work:
// Transport, then dispatch to l.
func (c *Client) issue(ctx context.Context, method Method, rawURL string, body *string, l Listener) *Handle {
	req := Request{ID: uuid.New(), Method: method, URL: rawURL, Body: body}
	attrs := []any{"request_id", req.ID, "method", req.Method, "url", req.URL}

	h, err := c.group.Start(ctx, req.ID, func(ctx context.Context) Outcome {
		c.logger.Debug("request started", attrs...)

		outcome := c.execute(ctx, req)
		if outcome.Err != nil {
			c.logger.Info("request failed", slices.Concat(attrs, []any{"error", outcome.Err})...)
		} else {
			c.logger.Debug("request succeeded", slices.Concat(attrs, []any{"bytes", len(outcome.Body)})...)
		}

		dispatch(c.exec, outcome, l, c.logger, attrs...)
		return outcome
	})
	if err != nil {
		outcome := Failed(fmt.Errorf("%w: %w", ErrClosed, err))
		c.logger.Warn("request rejected", slices.Concat(attrs, []any{"error", err})...)
		dispatch(c.rejectionExecutor(), outcome, l, c.logger, attrs...)
		return async.Completed(req.ID, outcome)
	}

	return h
}

// rejectionExecutor runs rejection callbacks. An owned loop may already
// be stopped by Close; the callback then runs on a fresh goroutine.
func (c *Client) rejectionExecutor() Executor {
	if c.loop == nil {
		return c.exec
	}

	return ExecutorFunc(func(fn func()) {
		if !c.loop.tryExecute(fn) {
			go c.loop.run(fn)
		}
	})
}

// execute shields the worker goroutine from a panicking Transport.
func (c *Client) execute(ctx context.Context, req Request) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(&TransportError{Op: "execute", URL: req.URL, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	return c.transport.Execute(ctx, req)
}
