package nucleus

import (
	"context"
	"strings"
	"sync"
)

// TokenCapturer is the opaque interactive capture mechanism: an embedded
// browser session, a loopback redirect listener, or anything else that ends
// up holding a bearer token once the user completes an external login flow.
// The concrete mechanism is a swappable adapter, never part of the core.
type TokenCapturer interface {
	// Capture blocks until a token is produced, the capture is cancelled
	// (ErrCancelled), or the mechanism gives up (ErrNoToken or a timeout).
	Capture(ctx context.Context) (string, error)
}

// CaptureFunc adapts a plain function to TokenCapturer.
type CaptureFunc func(ctx context.Context) (string, error)

func (f CaptureFunc) Capture(ctx context.Context) (string, error) { return f(ctx) }

// CaptureSession is a single-shot TokenCapturer for push-style capture
// mechanisms (browser automation sniffing Authorization headers, redirect
// handlers). The first resolution wins: once a token, cancellation, or
// failure lands, every later Resolve/Cancel/Fail is a no-op.
type CaptureSession struct {
	once  sync.Once
	done  chan struct{}
	token string
	err   error
}

// NewCaptureSession returns an unresolved session.
func NewCaptureSession() *CaptureSession {
	return &CaptureSession{done: make(chan struct{})}
}

// Resolve delivers a captured token. An empty token resolves the session
// with ErrNoToken.
func (s *CaptureSession) Resolve(token string) {
	s.once.Do(func() {
		token = strings.TrimSpace(token)
		if token == "" {
			s.err = ErrNoToken
		} else {
			s.token = token
		}
		close(s.done)
	})
}

// Cancel resolves the session with ErrCancelled. Cancelling after a token
// has been captured is a no-op.
func (s *CaptureSession) Cancel() {
	s.once.Do(func() {
		s.err = ErrCancelled
		close(s.done)
	})
}

// Fail resolves the session with the capture mechanism's own error; a nil
// err counts as ErrNoToken.
func (s *CaptureSession) Fail(err error) {
	s.once.Do(func() {
		if err == nil {
			err = ErrNoToken
		}
		s.err = err
		close(s.done)
	})
}

// ResolvePayload feeds a raw JSON blob the capture mechanism pulled out of
// browser storage. Structured shapes are tried first; the heuristic key probe
// is the last resort. Unusable payloads leave the session pending so a later
// sniff can still win.
func (s *CaptureSession) ResolvePayload(data []byte) bool {
	token, ok := tokenFromPayload(data)
	if !ok {
		return false
	}
	s.Resolve(token)
	return true
}

// Capture waits for the first resolution. Context cancellation resolves the
// session with ErrCancelled.
func (s *CaptureSession) Capture(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		s.Cancel()
	case <-s.done:
	}
	<-s.done
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}
