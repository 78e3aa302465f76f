// Package client owns request submission: it assembles the request
// message, picks one of the two submission protocols (streaming or
// submit/poll/cancel), and hands the caller a lazy answer stream.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gyreclient/generation"
	"gyreclient/request"
	"gyreclient/transport"
)

// ErrTransport is the sentinel for any failure of the underlying RPC
// call or stream. The cause is wrapped, never swallowed, and nothing is
// retried locally.
var ErrTransport = errors.New("client: transport failure")

// defaultPollInterval is the fixed sleep between async result polls.
const defaultPollInterval = 5 * time.Second

// Config configures a Client.
type Config struct {
	// Engine is the engine id used when a request does not name one.
	Engine string

	// PollInterval overrides the async polling interval. Zero means
	// the default of five seconds.
	PollInterval time.Duration

	// Logger receives verbose progress logging. Nil disables it.
	Logger *zap.Logger
}

// Client submits generation requests over a transport service. Each
// Generate call owns an independent request id and stream; the Client
// itself holds no per-request state.
type Client struct {
	svc          transport.Service
	engine       string
	pollInterval time.Duration
	log          *zap.Logger
}

// New builds a Client on top of a transport service.
func New(svc transport.Service, cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}
	return &Client{
		svc:          svc,
		engine:       cfg.Engine,
		pollInterval: interval,
		log:          log,
	}
}

// Generate assembles and submits one request, returning a lazy,
// forward-only stream of answers. Assembly errors abort before any
// network call. The request is never mutated after submission;
// cancelling the stream is the only way to stop it early.
func (c *Client) Generate(ctx context.Context, params request.Params) (transport.AnswerStream, error) {
	req, err := request.Build(params)
	if err != nil {
		return nil, err
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.EngineID == "" {
		req.EngineID = c.engine
	}

	if params.Async {
		return c.submitAsync(ctx, req)
	}
	return c.submitStream(ctx, req)
}

// submitStream is the synchronous streaming protocol: one streaming RPC,
// answers surfaced as the server produces them.
func (c *Client) submitStream(ctx context.Context, req *generation.Request) (transport.AnswerStream, error) {
	c.log.Info("sending request",
		zap.String("request_id", req.RequestID),
		zap.String("engine_id", req.EngineID),
	)

	stream, err := c.svc.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	return &loggedStream{
		inner: stream,
		log:   c.log,
		start: time.Now(),
	}, nil
}

// submitAsync is the submit/poll/cancel protocol: one async submission
// returning a handle, then polling at a fixed interval until the
// service reports completion. The loop is unbounded; there is no retry
// cap and no backoff.
func (c *Client) submitAsync(ctx context.Context, req *generation.Request) (transport.AnswerStream, error) {
	c.log.Info("sending async request",
		zap.String("request_id", req.RequestID),
		zap.String("engine_id", req.EngineID),
	)

	handle, err := c.svc.AsyncGenerate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	c.log.Info("async request accepted",
		zap.String("request_id", handle.RequestID),
		zap.String("handle", handle.AsyncHandle),
	)

	return &asyncStream{
		svc:      c.svc,
		ctx:      ctx,
		handle:   handle,
		interval: c.pollInterval,
		log:      c.log,
		done:     make(chan struct{}),
	}, nil
}

// ListEngines lists the engines available on the server.
func (c *Client) ListEngines(ctx context.Context) (*generation.Engines, error) {
	engines, err := c.svc.ListEngines(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return engines, nil
}

// wrapRecvErr normalizes stream termination: io.EOF passes through as
// the end-of-stream marker, cancellation surfaces as context.Canceled
// (a success path for this client), everything else is a transport
// failure.
func wrapRecvErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled {
		return context.Canceled
	}
	if isEOF(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
