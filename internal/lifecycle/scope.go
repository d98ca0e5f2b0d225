package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/robotomize/go-allure/internal/hook"
	"github.com/robotomize/go-allure/internal/repr"
)

type state int

const (
	stateCreated state = iota
	stateRunning
	stateDone
)

// scope is the part shared by every lifecycle context: a fresh id and the
// CREATED -> RUNNING -> done transition guarded against reuse.
type scope struct {
	exec   *Execution
	uuid   string
	parent string
	state  state
}

func newScope(e *Execution) scope {
	return scope{exec: e, uuid: repr.NewUUID()}
}

func (s *scope) UUID() string {
	return s.uuid
}

func (s *scope) ParentUUID() string {
	return s.parent
}

// enter pushes the scope and emits its start event. A failed start event pops
// it again and retires the scope.
func (s *scope) enter(start func(parent string, at time.Time) error) error {
	if s.state != stateCreated {
		return fmt.Errorf("enter %s: %w", s.uuid, ErrInvalidState)
	}

	parent := s.exec.stack.Enter(s.uuid)
	if s.parent == "" {
		s.parent = parent
	}

	if err := start(s.parent, s.exec.clock()); err != nil {
		_ = s.exec.stack.Exit(s.uuid)
		s.state = stateDone

		return err
	}

	s.state = stateRunning

	return nil
}

// exit emits the stop event exactly once and pops the scope even when the
// stop event fails.
func (s *scope) exit(stop func(at time.Time) error) error {
	if s.state != stateRunning {
		return fmt.Errorf("exit %s: %w", s.uuid, ErrInvalidState)
	}
	s.state = stateDone

	err := stop(s.exec.clock())
	if popErr := s.exec.stack.Exit(s.uuid); popErr != nil {
		return errors.Join(err, popErr)
	}

	return err
}

// run executes body between an already successful enter and finish. The body
// error is returned unchanged unless the stop event fails too, in which case
// both are joined. A panic is recorded and re-raised.
func (s *scope) run(
	ctx context.Context,
	body hook.Body,
	classify func(error) hook.Outcome,
	finish func(context.Context, hook.Outcome) error,
) error {
	ctx = WithExecution(ctx, s.exec)

	returned := false
	defer func() {
		if returned {
			return
		}

		r := recover()
		outcome := abortedOutcome()
		if r != nil {
			outcome = panicOutcome(r, debug.Stack())
		}

		if err := finish(ctx, outcome); err != nil {
			s.exec.logger.Error("stop hook failed while unwinding", zap.String("uuid", s.uuid), zap.Error(err))
		}

		if r != nil {
			panic(r)
		}
	}()

	bodyErr := body(ctx)
	returned = true

	if err := finish(ctx, classify(bodyErr)); err != nil {
		if bodyErr == nil {
			return err
		}

		return errors.Join(bodyErr, err)
	}

	return bodyErr
}

// TestContext is one test case.
type TestContext struct {
	scope
	name   string
	meta   hook.TestMeta
	params repr.Params
}

// Test creates a test context. Its parent is the current container unless set
// with WithParent.
func (e *Execution) Test(name string, meta hook.TestMeta, params repr.Params) *TestContext {
	return &TestContext{scope: newScope(e), name: name, meta: meta, params: params}
}

// WithParent links the test to a result container such as one opened by a
// standalone fixture.
func (t *TestContext) WithParent(containerUUID string) *TestContext {
	t.parent = containerUUID
	return t
}

func (t *TestContext) Enter(ctx context.Context) error {
	return t.enter(func(parent string, at time.Time) error {
		return t.exec.dispatcher.StartTest(ctx, hook.StartTestEvent{
			ParentUUID: parent,
			UUID:       t.uuid,
			Name:       t.name,
			Parameters: t.params.Parameters(),
			Meta:       t.meta,
			Time:       at,
		})
	})
}

// Exit finishes the test with the outcome of err.
func (t *TestContext) Exit(ctx context.Context, err error) error {
	return t.finish(ctx, Classify(err))
}

func (t *TestContext) finish(ctx context.Context, outcome hook.Outcome) error {
	return t.exit(func(at time.Time) error {
		return t.exec.dispatcher.StopTest(ctx, hook.StopTestEvent{
			ParentUUID: t.parent,
			UUID:       t.uuid,
			Name:       t.name,
			Meta:       t.meta,
			Outcome:    outcome,
			Time:       at,
		})
	})
}

// Run is the scoped form of Enter/Exit.
func (t *TestContext) Run(ctx context.Context, body hook.Body) error {
	if err := t.Enter(ctx); err != nil {
		return err
	}

	return t.run(ctx, body, Classify, t.finish)
}

// FixtureContext is a setup or teardown routine attached to a parent container.
type FixtureContext struct {
	scope
	name   string
	kind   hook.FixtureKind
	params repr.Params
}

// Fixture creates a fixture context. An empty parentUUID falls back to the
// current container at Enter time.
func (e *Execution) Fixture(name string, kind hook.FixtureKind, parentUUID string, params repr.Params) *FixtureContext {
	f := &FixtureContext{scope: newScope(e), name: name, kind: kind, params: params}
	f.parent = parentUUID

	return f
}

func (f *FixtureContext) Enter(ctx context.Context) error {
	return f.enter(func(parent string, at time.Time) error {
		return f.exec.dispatcher.StartFixture(ctx, hook.StartFixtureEvent{
			ParentUUID: parent,
			UUID:       f.uuid,
			Name:       f.name,
			Kind:       f.kind,
			Parameters: f.params.Parameters(),
			Time:       at,
		})
	})
}

func (f *FixtureContext) Exit(ctx context.Context, err error) error {
	return f.finish(ctx, Classify(err))
}

func (f *FixtureContext) finish(ctx context.Context, outcome hook.Outcome) error {
	return f.exit(func(at time.Time) error {
		return f.exec.dispatcher.StopFixture(ctx, hook.StopFixtureEvent{
			ParentUUID: f.parent,
			UUID:       f.uuid,
			Name:       f.name,
			Outcome:    outcome,
			Time:       at,
		})
	})
}

func (f *FixtureContext) Run(ctx context.Context, body hook.Body) error {
	if err := f.Enter(ctx); err != nil {
		return err
	}

	return f.run(ctx, body, Classify, f.finish)
}

// StepContext is a titled sub-unit of a test or fixture.
type StepContext struct {
	scope
	title  string
	params repr.Params
	mark   *string
}

func (e *Execution) Step(title string, params repr.Params) *StepContext {
	return &StepContext{scope: newScope(e), title: title, params: params}
}

// Fail flags the step as failed without returning an error. The flag only
// takes effect when no error reaches the step's exit.
func (s *StepContext) Fail(message string) {
	s.mark = &message
}

func (s *StepContext) Enter(ctx context.Context) error {
	return s.enter(func(parent string, at time.Time) error {
		return s.exec.dispatcher.StartStep(ctx, hook.StartStepEvent{
			ParentUUID: parent,
			UUID:       s.uuid,
			Title:      s.title,
			Parameters: s.params.Parameters(),
			Time:       at,
		})
	})
}

func (s *StepContext) Exit(ctx context.Context, err error) error {
	return s.finish(ctx, s.classify(err))
}

func (s *StepContext) classify(err error) hook.Outcome {
	if err == nil && s.mark != nil {
		return Classify(Fail(*s.mark))
	}

	return Classify(err)
}

func (s *StepContext) finish(ctx context.Context, outcome hook.Outcome) error {
	return s.exit(func(at time.Time) error {
		return s.exec.dispatcher.StopStep(ctx, hook.StopStepEvent{
			UUID:    s.uuid,
			Title:   s.title,
			Outcome: outcome,
			Time:    at,
		})
	})
}

func (s *StepContext) Run(ctx context.Context, body hook.Body) error {
	if err := s.Enter(ctx); err != nil {
		return err
	}

	return s.run(context.WithValue(ctx, stepKey{}, s), body, s.classify, s.finish)
}

type stepKey struct{}

// StepFromContext returns the innermost step whose body received ctx.
func StepFromContext(ctx context.Context) (*StepContext, bool) {
	s, ok := ctx.Value(stepKey{}).(*StepContext)
	return s, ok && s != nil
}
