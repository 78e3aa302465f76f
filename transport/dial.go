package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/credentials/local"
)

// maxMessageSize bounds both directions; generated artifacts can be large.
const maxMessageSize = 30 * 1024 * 1024 // 30 MB

// Options configure the channel to the generation service.
type Options struct {
	// Host is the service address, host:port.
	Host string

	// Key is the bearer token sent with every call. Empty disables
	// authentication and transport security.
	Key string

	// WaitForReady makes calls block until the channel is ready instead
	// of failing fast on transient unavailability.
	WaitForReady bool
}

// PlaintextWithKey reports whether the options would send a key over a
// non-TLS channel, so the caller can warn before dialing.
func (o Options) PlaintextWithKey() bool {
	return o.Key != "" && !strings.HasSuffix(o.Host, "443")
}

// Dial opens the channel. A key on a :443 host gets TLS; a key on any
// other port assumes a trusted local network and uses local credentials;
// no key means an insecure channel.
func Dial(opts Options) (*grpc.ClientConn, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("transport: host must not be empty")
	}

	callOpts := []grpc.CallOption{
		grpc.CallContentSubtype(codecName),
		grpc.MaxCallRecvMsgSize(maxMessageSize),
		grpc.MaxCallSendMsgSize(maxMessageSize),
	}
	if opts.WaitForReady {
		callOpts = append(callOpts, grpc.WaitForReady(true))
	}

	dialOpts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(callOpts...),
	}

	switch {
	case opts.Key != "" && strings.HasSuffix(opts.Host, "443"):
		dialOpts = append(dialOpts,
			grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})),
			grpc.WithPerRPCCredentials(bearerToken{token: opts.Key, secure: true}),
		)
	case opts.Key != "":
		dialOpts = append(dialOpts,
			grpc.WithTransportCredentials(local.NewCredentials()),
			grpc.WithPerRPCCredentials(bearerToken{token: opts.Key}),
		)
	default:
		dialOpts = append(dialOpts,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	conn, err := grpc.NewClient(opts.Host, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", opts.Host, err)
	}
	return conn, nil
}

// bearerToken attaches the API key as a bearer token on every call.
type bearerToken struct {
	token  string
	secure bool
}

func (b bearerToken) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearerToken) RequireTransportSecurity() bool {
	return b.secure
}
