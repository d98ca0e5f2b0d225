// Package lifecycle turns scoped test, fixture and step execution into paired
// start/stop events on a hook.Dispatcher.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/robotomize/go-allure/internal/hook"
	"github.com/robotomize/go-allure/internal/repr"
)

// Clock stamps start and stop events.
type Clock func() time.Time

// Option configures an Execution.
type Option func(*Execution)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Execution) {
		e.logger = logger
	}
}

func WithClock(clock Clock) Option {
	return func(e *Execution) {
		e.clock = clock
	}
}

func WithFormatter(f repr.Formatter) Option {
	return func(e *Execution) {
		e.formatter = f
	}
}

// Execution is the state of one execution unit: a goroutine running a single
// test call chain. Executions share the dispatcher but never their stack.
type Execution struct {
	dispatcher *hook.Dispatcher
	stack      Stack
	formatter  repr.Formatter
	clock      Clock
	logger     *zap.Logger
}

func New(dispatcher *hook.Dispatcher, opts ...Option) *Execution {
	e := &Execution{
		dispatcher: dispatcher,
		formatter:  repr.Default,
		clock:      time.Now,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Current returns the innermost open container, or "".
func (e *Execution) Current() string {
	return e.stack.Current()
}

func (e *Execution) Depth() int {
	return e.stack.Len()
}

func (e *Execution) Dispatcher() *hook.Dispatcher {
	return e.dispatcher
}

// Params captures call arguments with the execution's formatter.
func (e *Execution) Params(names []string, args ...any) repr.Params {
	return repr.Capture(e.formatter, names, args)
}

type executionKey struct{}

// WithExecution binds e to ctx, both for FromContext and as the hook.Tracker
// consulted by decorate wrappers.
func WithExecution(ctx context.Context, e *Execution) context.Context {
	if cur, ok := FromContext(ctx); ok && cur == e {
		return ctx
	}

	ctx = context.WithValue(ctx, executionKey{}, e)

	return hook.WithTracker(ctx, e)
}

func FromContext(ctx context.Context) (*Execution, bool) {
	e, ok := ctx.Value(executionKey{}).(*Execution)
	return e, ok && e != nil
}
