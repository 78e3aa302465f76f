package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"gyreclient/generation"
	"gyreclient/transport"
)

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// loggedStream wraps the raw answer stream with per-answer timing logs
// and error normalization. Recv still blocks until the server produces
// the next answer.
type loggedStream struct {
	inner transport.AnswerStream
	log   *zap.Logger
	start time.Time
}

func (s *loggedStream) Recv() (*generation.Answer, error) {
	answer, err := s.inner.Recv()
	if err != nil {
		return nil, wrapRecvErr(err)
	}

	elapsed := time.Since(s.start)
	if len(answer.Artifacts) == 0 {
		s.log.Debug("got keepalive",
			zap.String("answer_id", answer.AnswerID),
			zap.Duration("elapsed", elapsed),
		)
	} else {
		types := make([]string, 0, len(answer.Artifacts))
		for _, artifact := range answer.Artifacts {
			types = append(types, artifact.Type.String())
		}
		s.log.Info("got answer",
			zap.String("answer_id", answer.AnswerID),
			zap.Strings("artifacts", types),
			zap.Duration("elapsed", elapsed),
		)
	}

	s.start = time.Now()
	return answer, nil
}

func (s *loggedStream) Cancel() {
	s.inner.Cancel()
}

// asyncStream adapts the submit/poll protocol to the AnswerStream
// surface. Recv serves buffered answers from the latest poll, then
// either terminates (poll reported complete) or sleeps the fixed
// interval and polls again. The first poll is immediate.
type asyncStream struct {
	svc      transport.Service
	ctx      context.Context
	handle   *generation.AsyncHandle
	interval time.Duration
	log      *zap.Logger

	// done is closed by Cancel so a blocked or subsequent Recv returns
	// promptly instead of polling on.
	done     chan struct{}
	stopOnce sync.Once

	pending  []*generation.Answer
	complete bool
	polled   bool
}

func (s *asyncStream) Recv() (*generation.Answer, error) {
	for {
		select {
		case <-s.done:
			return nil, context.Canceled
		default:
		}

		if len(s.pending) > 0 {
			answer := s.pending[0]
			s.pending = s.pending[1:]
			return answer, nil
		}
		if s.complete {
			return nil, io.EOF
		}

		if s.polled {
			// Fixed interval, no backoff. Cancellation is observable
			// here as well as inside the poll call itself.
			select {
			case <-s.ctx.Done():
				return nil, wrapRecvErr(s.ctx.Err())
			case <-s.done:
				return nil, context.Canceled
			case <-time.After(s.interval):
			}
		}

		result, err := s.svc.AsyncResult(s.ctx, s.handle)
		if err != nil {
			return nil, wrapRecvErr(err)
		}
		s.polled = true
		s.pending = result.Answer
		s.complete = result.Complete

		if s.complete {
			s.log.Info("async request complete",
				zap.String("request_id", s.handle.RequestID),
			)
		}
	}
}

// Cancel stops the poll loop and issues a best-effort remote cancel
// against the handle. The remote call uses its own context so a cancel
// triggered by the caller's context teardown still reaches the service.
func (s *asyncStream) Cancel() {
	s.stopOnce.Do(func() { close(s.done) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.svc.AsyncCancel(ctx, s.handle); err != nil {
		s.log.Warn("async cancel failed",
			zap.String("request_id", s.handle.RequestID),
			zap.Error(err),
		)
	}
}
