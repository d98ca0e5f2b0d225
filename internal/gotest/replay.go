package gotest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/robotomize/go-allure/internal/allure"
	"github.com/robotomize/go-allure/internal/hook"
	"github.com/robotomize/go-allure/internal/lifecycle"
	"github.com/robotomize/go-allure/internal/repr"
)

const logAttachmentName = "log"

type ReplayOption func(*Replayer)

func WithLogger(logger *zap.Logger) ReplayOption {
	return func(r *Replayer) {
		r.logger = logger
	}
}

// WithForceAttachments attaches the log of passed and skipped tests too.
func WithForceAttachments(force bool) ReplayOption {
	return func(r *Replayer) {
		r.force = force
	}
}

// Replayer feeds recorded tests through the lifecycle, one execution per
// top-level test. Subtests become nested steps.
type Replayer struct {
	dispatcher *hook.Dispatcher
	logger     *zap.Logger
	force      bool
}

func NewReplayer(dispatcher *hook.Dispatcher, opts ...ReplayOption) *Replayer {
	r := &Replayer{dispatcher: dispatcher, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Summary counts replayed top-level tests by status.
type Summary map[allure.Status]int

// Replay replays every test of set. Test failures are part of the report, so
// only errors raised by listeners are returned.
func (r *Replayer) Replay(ctx context.Context, set Set) (Summary, error) {
	summary := make(Summary)

	var errs []error
	for _, t := range set.Tests {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		status, err := r.replayTest(ctx, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("replay %s: %w", t.FullName(), err))
			continue
		}
		summary[status]++
	}

	return summary, errors.Join(errs...)
}

// replayClock hands out the recorded times of the test being replayed.
type replayClock struct {
	now time.Time
}

func (c *replayClock) Now() time.Time {
	return c.now
}

func (r *Replayer) replayTest(ctx context.Context, t *Test) (allure.Status, error) {
	clock := &replayClock{now: t.Start}
	exec := lifecycle.New(r.dispatcher, lifecycle.WithClock(clock.Now), lifecycle.WithLogger(r.logger))

	meta := hook.TestMeta{
		FullName: t.FullName(),
		Labels: []allure.Label{
			{Name: string(allure.LabelPackage), Value: t.Package},
			{Name: string(allure.LabelTestClass), Value: t.Package},
			{Name: string(allure.LabelTestMethod), Value: t.Name},
			{Name: "go-version", Value: runtime.Version()},
		},
	}

	outcome := outcomeError(t)

	err := exec.Test(t.Name, meta, repr.Params{}).Run(ctx, func(ctx context.Context) error {
		if err := r.replayChildren(ctx, exec, clock, t); err != nil {
			return err
		}

		if err := r.attachLog(ctx, exec, t, outcome); err != nil {
			return err
		}

		clock.now = t.stopTime()

		return outcome
	})
	if err != nil && err != outcome { //nolint:errorlint
		return "", err
	}

	return lifecycle.Classify(outcome).Status, nil
}

func (r *Replayer) replayChildren(ctx context.Context, exec *lifecycle.Execution, clock *replayClock, t *Test) error {
	for _, child := range t.Children {
		clock.now = child.Start
		outcome := outcomeError(child)

		err := exec.Step(child.ShortName(), repr.Params{}).Run(ctx, func(ctx context.Context) error {
			if err := r.replayChildren(ctx, exec, clock, child); err != nil {
				return err
			}

			if err := r.attachLog(ctx, exec, child, outcome); err != nil {
				return err
			}

			clock.now = child.stopTime()

			return outcome
		})
		if err != nil && err != outcome { //nolint:errorlint
			return err
		}
	}

	return nil
}

func (r *Replayer) attachLog(ctx context.Context, exec *lifecycle.Execution, t *Test, outcome error) error {
	if !r.force && (outcome == nil || lifecycle.IsSkip(outcome)) {
		return nil
	}

	log := t.Log()
	if len(log) == 0 {
		return nil
	}

	return exec.Attach(ctx, log, logAttachmentName, allure.TypeText)
}

// outcomeError maps the recorded result to the error the lifecycle classifies.
// Failed subtests fail their parents too, so a parent keeps its own status.
func outcomeError(t *Test) error {
	switch {
	case !t.Finished():
		return fmt.Errorf("%s: no result reported", t.Name)
	case t.Status == ActionPass:
		return nil
	case t.Status == ActionSkip:
		reason := t.Message()
		if reason == "" {
			reason = t.Name
		}
		return lifecycle.Skip(reason)
	case t.Status == ActionFail && t.Panicked():
		return fmt.Errorf("%s: %s", t.Name, firstPanicLine(t))
	default:
		msg := t.Message()
		if msg == "" {
			msg = t.Name + " failed"
		}
		return lifecycle.Fail(msg)
	}
}

func firstPanicLine(t *Test) string {
	for _, line := range t.Output {
		if msg := trimPanic(line); msg != "" {
			return msg
		}
	}

	return "panic"
}

func trimPanic(line string) string {
	if s := strings.TrimSpace(line); strings.HasPrefix(s, "panic:") {
		return s
	}

	return ""
}
