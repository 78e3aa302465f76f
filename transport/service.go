package transport

import (
	"context"

	"google.golang.org/grpc"

	"gyreclient/generation"
)

// Full method names of the consumed remote operations.
const (
	methodGenerate      = "/gooseai.GenerationService/Generate"
	methodAsyncGenerate = "/gooseai.GenerationService/AsyncGenerate"
	methodAsyncResult   = "/gooseai.GenerationService/AsyncResult"
	methodAsyncCancel   = "/gooseai.GenerationService/AsyncCancel"
	methodListEngines   = "/gooseai.EnginesService/ListEngines"
)

// AnswerStream is a forward-only, non-restartable sequence of answers.
// Recv blocks until the server produces the next answer, returns io.EOF
// when the server closes the stream, and returns promptly after Cancel.
type AnswerStream interface {
	Recv() (*generation.Answer, error)
	Cancel()
}

// Service is the remote surface of the generation service consumed by
// this client. Implementations other than the gRPC one exist only in
// tests.
type Service interface {
	// Generate submits a request and streams its answers.
	Generate(ctx context.Context, req *generation.Request) (AnswerStream, error)

	// AsyncGenerate submits a request for asynchronous processing and
	// returns an opaque handle.
	AsyncGenerate(ctx context.Context, req *generation.Request) (*generation.AsyncHandle, error)

	// AsyncResult polls a handle for answers produced since the last poll.
	AsyncResult(ctx context.Context, handle *generation.AsyncHandle) (*generation.AsyncAnswer, error)

	// AsyncCancel asks the service to abort an async request.
	AsyncCancel(ctx context.Context, handle *generation.AsyncHandle) error

	// ListEngines lists the engines available on the server.
	ListEngines(ctx context.Context) (*generation.Engines, error)
}

// GRPCService issues the remote operations over a dialed channel.
type GRPCService struct {
	conn *grpc.ClientConn
}

// NewService wraps a dialed channel.
func NewService(conn *grpc.ClientConn) *GRPCService {
	return &GRPCService{conn: conn}
}

var _ Service = (*GRPCService)(nil)

var generateDesc = &grpc.StreamDesc{
	StreamName:    "Generate",
	ServerStreams: true,
}

// Generate opens the server stream and sends the request. The returned
// stream owns a derived context; Cancel aborts it at the transport level.
func (s *GRPCService) Generate(ctx context.Context, req *generation.Request) (AnswerStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	cs, err := s.conn.NewStream(ctx, generateDesc, methodGenerate)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		cancel()
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, err
	}
	return &grpcAnswerStream{cs: cs, cancel: cancel}, nil
}

func (s *GRPCService) AsyncGenerate(ctx context.Context, req *generation.Request) (*generation.AsyncHandle, error) {
	var handle generation.AsyncHandle
	if err := s.conn.Invoke(ctx, methodAsyncGenerate, req, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

func (s *GRPCService) AsyncResult(ctx context.Context, handle *generation.AsyncHandle) (*generation.AsyncAnswer, error) {
	var answer generation.AsyncAnswer
	if err := s.conn.Invoke(ctx, methodAsyncResult, handle, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (s *GRPCService) AsyncCancel(ctx context.Context, handle *generation.AsyncHandle) error {
	var ack generation.AsyncCancelAnswer
	return s.conn.Invoke(ctx, methodAsyncCancel, handle, &ack)
}

func (s *GRPCService) ListEngines(ctx context.Context) (*generation.Engines, error) {
	var engines generation.Engines
	if err := s.conn.Invoke(ctx, methodListEngines, &generation.ListEnginesRequest{}, &engines); err != nil {
		return nil, err
	}
	return &engines, nil
}

// grpcAnswerStream adapts a raw client stream. Recv errors other than
// io.EOF release the stream's context immediately.
type grpcAnswerStream struct {
	cs     grpc.ClientStream
	cancel context.CancelFunc
}

func (g *grpcAnswerStream) Recv() (*generation.Answer, error) {
	var answer generation.Answer
	if err := g.cs.RecvMsg(&answer); err != nil {
		g.cancel()
		return nil, err
	}
	return &answer, nil
}

func (g *grpcAnswerStream) Cancel() {
	g.cancel()
}
