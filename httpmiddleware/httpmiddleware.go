// Package httpmiddleware handles HTTP requests as orchestrated operations, the
// requests are limited by the operation concurrency and time limits and handled
// on the operation pool.
package httpmiddleware

import (
	"bytes"
	"context"
	goerrors "errors"
	"fmt"
	"net/http"

	"github.com/slok/gorchestrator"
	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/errors"
	"github.com/slok/gorchestrator/log"
)

// Config is the configuration of the middleware.
type Config struct {
	// Operation is the name of the operation registered for the handled requests.
	Operation string
	// Declared is the configuration of the operation.
	Declared config.Orchestration
	// Logger is the logger.
	Logger log.Logger
}

func (c *Config) defaults() {
	if c.Operation == "" {
		c.Operation = "http"
	}

	if c.Logger == nil {
		c.Logger = log.Dummy
	}
}

// request is the target of the operation.
type request struct {
	next http.Handler
	w    *bufferedWriter
	r    *http.Request
}

func serve(ctx context.Context, target interface{}, _ ...interface{}) (interface{}, error) {
	req, ok := target.(*request)
	if !ok {
		return nil, fmt.Errorf("unexpected target %T", target)
	}
	req.next.ServeHTTP(req.w, req.r.WithContext(ctx))
	return nil, nil
}

// New registers the operation on the orchestrator and returns a middleware that handles
// the requests with it. The response is buffered and only written if the request has
// been handled in time, otherwise the response status will be:
//
//   - 429 if the concurrency limit has been reached.
//   - 503 if the pool is saturated.
//   - 504 if the time limit has been reached.
func New(o *gorchestrator.Orchestrator, cfg Config) (func(http.Handler) http.Handler, error) {
	cfg.defaults()

	err := o.Register(gorchestrator.Operation{
		Name:     cfg.Operation,
		Method:   serve,
		Mode:     gorchestrator.ModeSync,
		Declared: cfg.Declared,
	})
	if err != nil {
		return nil, fmt.Errorf("could not register %q operation: %w", cfg.Operation, err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bw := newBufferedWriter()
			_, err := o.Call(r.Context(), gorchestrator.Call{
				Operation: cfg.Operation,
				Target:    &request{next: next, w: bw, r: r},
			})
			if err != nil {
				status := StatusFor(err)
				cfg.Logger.Debugf("request %s %s not handled: %s", r.Method, r.URL.Path, err)
				if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
					w.Header().Set("Retry-After", "1")
				}
				http.Error(w, http.StatusText(status), status)
				return
			}

			bw.flushTo(w)
		})
	}, nil
}

// StatusFor returns the HTTP status code for an orchestration error.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case goerrors.Is(err, errors.ErrConcurrentOverflow):
		return http.StatusTooManyRequests
	case goerrors.Is(err, errors.ErrExecutorOverflow), goerrors.Is(err, errors.ErrPoolShutdown):
		return http.StatusServiceUnavailable
	case goerrors.Is(err, errors.ErrExecutionTimeout):
		return http.StatusGatewayTimeout
	case goerrors.Is(err, errors.ErrContextCanceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// bufferedWriter keeps the response until the request has been handled, a
// timed out handler could continue writing after the middleware returned.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: http.Header{}}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedWriter) flushTo(w http.ResponseWriter) {
	for k, v := range b.header {
		w.Header()[k] = v
	}

	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = b.body.WriteTo(w)
}
