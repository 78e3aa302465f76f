package client

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gyreclient/generation"
	"gyreclient/request"
	"gyreclient/transport"
)

// fakeStream serves a fixed sequence of answers then io.EOF.
type fakeStream struct {
	answers   []*generation.Answer
	pos       int
	cancelled bool
}

func (s *fakeStream) Recv() (*generation.Answer, error) {
	if s.pos >= len(s.answers) {
		return nil, io.EOF
	}
	answer := s.answers[s.pos]
	s.pos++
	return answer, nil
}

func (s *fakeStream) Cancel() { s.cancelled = true }

// fakeService records every call made against it.
type fakeService struct {
	generateCalls int
	generateReq   *generation.Request
	stream        *fakeStream
	generateErr   error

	asyncCalls  int
	asyncReq    *generation.Request
	asyncErr    error
	resultCalls int
	results     []*generation.AsyncAnswer
	resultErr   error
	pollForever bool
	cancelCalls int
	cancelErr   error

	enginesCalls int
	engines      *generation.Engines
	enginesErr   error
}

func (f *fakeService) Generate(ctx context.Context, req *generation.Request) (transport.AnswerStream, error) {
	f.generateCalls++
	f.generateReq = req
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if f.stream == nil {
		f.stream = &fakeStream{}
	}
	return f.stream, nil
}

func (f *fakeService) AsyncGenerate(ctx context.Context, req *generation.Request) (*generation.AsyncHandle, error) {
	f.asyncCalls++
	f.asyncReq = req
	if f.asyncErr != nil {
		return nil, f.asyncErr
	}
	return &generation.AsyncHandle{RequestID: req.RequestID, AsyncHandle: "handle-1"}, nil
}

func (f *fakeService) AsyncResult(ctx context.Context, handle *generation.AsyncHandle) (*generation.AsyncAnswer, error) {
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	if f.pollForever {
		f.resultCalls++
		return &generation.AsyncAnswer{}, nil
	}
	if f.resultCalls >= len(f.results) {
		return &generation.AsyncAnswer{Complete: true}, nil
	}
	result := f.results[f.resultCalls]
	f.resultCalls++
	return result, nil
}

func (f *fakeService) AsyncCancel(ctx context.Context, handle *generation.AsyncHandle) error {
	f.cancelCalls++
	return f.cancelErr
}

func (f *fakeService) ListEngines(ctx context.Context) (*generation.Engines, error) {
	f.enginesCalls++
	return f.engines, f.enginesErr
}

func textParams() request.Params {
	p := request.DefaultParams()
	p.Prompts = []request.PromptInput{request.Text("a cat")}
	return p
}

func TestGenerate_InvalidParamsNeverReachTransport(t *testing.T) {
	svc := &fakeService{}
	cli := New(svc, Config{})

	_, err := cli.Generate(context.Background(), request.DefaultParams())
	if !errors.Is(err, generation.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got: %v", err)
	}
	if svc.generateCalls != 0 || svc.asyncCalls != 0 {
		t.Errorf("transport must not be touched on validation failure: %d/%d calls",
			svc.generateCalls, svc.asyncCalls)
	}
}

func TestGenerate_MintsRequestIDAndDefaultEngine(t *testing.T) {
	svc := &fakeService{}
	cli := New(svc, Config{Engine: "engine-default"})

	_, err := cli.Generate(context.Background(), textParams())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if svc.generateReq.RequestID == "" {
		t.Error("request id was not minted")
	}
	if svc.generateReq.EngineID != "engine-default" {
		t.Errorf("engine id: got %q, want engine-default", svc.generateReq.EngineID)
	}
}

func TestGenerate_ExplicitIDsWin(t *testing.T) {
	svc := &fakeService{}
	cli := New(svc, Config{Engine: "engine-default"})

	p := textParams()
	p.EngineID = "engine-mine"
	p.RequestID = "req-mine"

	if _, err := cli.Generate(context.Background(), p); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if svc.generateReq.EngineID != "engine-mine" || svc.generateReq.RequestID != "req-mine" {
		t.Errorf("ids: got %q/%q, want engine-mine/req-mine",
			svc.generateReq.EngineID, svc.generateReq.RequestID)
	}
}

func TestGenerate_StreamAnswers(t *testing.T) {
	svc := &fakeService{stream: &fakeStream{answers: []*generation.Answer{
		{AnswerID: "ans-1"},
		{AnswerID: "ans-2"},
	}}}
	cli := New(svc, Config{})

	stream, err := cli.Generate(context.Background(), textParams())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	for _, want := range []string{"ans-1", "ans-2"} {
		answer, err := stream.Recv()
		if err != nil {
			t.Fatalf("Recv returned error: %v", err)
		}
		if answer.AnswerID != want {
			t.Errorf("answer id: got %q, want %q", answer.AnswerID, want)
		}
	}
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end of stream, got: %v", err)
	}
}

func TestGenerate_TransportFailureWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	svc := &fakeService{generateErr: cause}
	cli := New(svc, Config{})

	_, err := cli.Generate(context.Background(), textParams())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause must be wrapped, got: %v", err)
	}
}

func TestGenerate_StreamCancelPropagates(t *testing.T) {
	inner := &fakeStream{}
	svc := &fakeService{stream: inner}
	cli := New(svc, Config{})

	stream, err := cli.Generate(context.Background(), textParams())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	stream.Cancel()
	if !inner.cancelled {
		t.Error("cancel did not reach the underlying stream")
	}
}

func TestGenerate_AsyncPollSequence(t *testing.T) {
	svc := &fakeService{results: []*generation.AsyncAnswer{
		{Answer: []*generation.Answer{{AnswerID: "ans-1"}}},
		{},
		{Answer: []*generation.Answer{{AnswerID: "ans-2"}, {AnswerID: "ans-3"}}, Complete: true},
	}}
	cli := New(svc, Config{PollInterval: time.Millisecond})

	p := textParams()
	p.Async = true

	stream, err := cli.Generate(context.Background(), p)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if svc.asyncCalls != 1 {
		t.Fatalf("expected one async submission, got %d", svc.asyncCalls)
	}

	var got []string
	for {
		answer, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv returned error: %v", err)
		}
		got = append(got, answer.AnswerID)
	}

	want := []string{"ans-1", "ans-2", "ans-3"}
	if len(got) != len(want) {
		t.Fatalf("answers: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("answer %d: got %q, want %q", i, got[i], want[i])
		}
	}
	// The complete poll ends the loop; no further polls after it.
	if svc.resultCalls != 3 {
		t.Errorf("expected exactly 3 polls, got %d", svc.resultCalls)
	}
}

func TestGenerate_AsyncCancelReachesService(t *testing.T) {
	svc := &fakeService{}
	cli := New(svc, Config{PollInterval: time.Millisecond})

	p := textParams()
	p.Async = true

	stream, err := cli.Generate(context.Background(), p)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	stream.Cancel()
	if svc.cancelCalls != 1 {
		t.Errorf("expected one remote cancel, got %d", svc.cancelCalls)
	}
}

func TestGenerate_AsyncCancelStopsPolling(t *testing.T) {
	svc := &fakeService{pollForever: true}
	cli := New(svc, Config{PollInterval: time.Millisecond})

	p := textParams()
	p.Async = true

	stream, err := cli.Generate(context.Background(), p)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	stream.Cancel()
	if svc.cancelCalls != 1 {
		t.Fatalf("expected one remote cancel, got %d", svc.cancelCalls)
	}

	// Recv after Cancel must terminate, not keep polling.
	polled := svc.resultCalls
	_, err = stream.Recv()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled after Cancel, got: %v", err)
	}
	if svc.resultCalls != polled {
		t.Errorf("Recv polled %d more times after Cancel", svc.resultCalls-polled)
	}
}

func TestGenerate_AsyncCancelUnblocksRecv(t *testing.T) {
	svc := &fakeService{pollForever: true}
	cli := New(svc, Config{PollInterval: time.Minute})

	p := textParams()
	p.Async = true

	stream, err := cli.Generate(context.Background(), p)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	// The first poll returns nothing, so Recv parks in the interval
	// sleep. Cancel must wake it.
	errc := make(chan error, 1)
	go func() {
		_, err := stream.Recv()
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	stream.Cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not return after Cancel")
	}
}

func TestGenerate_AsyncContextCancellation(t *testing.T) {
	svc := &fakeService{results: []*generation.AsyncAnswer{{}, {}, {}}}
	cli := New(svc, Config{PollInterval: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())

	p := textParams()
	p.Async = true

	stream, err := cli.Generate(ctx, p)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	// First Recv polls immediately and buffers nothing; cancel before
	// the interval sleep.
	cancel()
	_, err = stream.Recv()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestListEngines(t *testing.T) {
	svc := &fakeService{engines: &generation.Engines{Engine: []*generation.EngineInfo{
		{ID: "stable-diffusion-v1-5", Ready: true},
	}}}
	cli := New(svc, Config{})

	engines, err := cli.ListEngines(context.Background())
	if err != nil {
		t.Fatalf("ListEngines returned error: %v", err)
	}
	if len(engines.Engine) != 1 || engines.Engine[0].ID != "stable-diffusion-v1-5" {
		t.Errorf("engines: %+v", engines.Engine)
	}
}

func TestListEngines_FailureWrapped(t *testing.T) {
	svc := &fakeService{enginesErr: errors.New("unavailable")}
	cli := New(svc, Config{})

	_, err := cli.ListEngines(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got: %v", err)
	}
}

func TestWrapRecvErr(t *testing.T) {
	if err := wrapRecvErr(nil); err != nil {
		t.Errorf("nil must pass through, got: %v", err)
	}
	if err := wrapRecvErr(io.EOF); !errors.Is(err, io.EOF) {
		t.Errorf("io.EOF must pass through, got: %v", err)
	}
	if errors.Is(wrapRecvErr(io.EOF), ErrTransport) {
		t.Error("io.EOF must not be a transport failure")
	}
	if err := wrapRecvErr(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("cancellation must surface as context.Canceled, got: %v", err)
	}

	cause := errors.New("connection reset")
	err := wrapRecvErr(cause)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, cause) {
		t.Errorf("other errors must wrap as ErrTransport, got: %v", err)
	}
}
