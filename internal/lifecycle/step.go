package lifecycle

import (
	"context"

	"github.com/robotomize/go-allure/internal/hook"
	"github.com/robotomize/go-allure/internal/repr"
)

// Func is a callable that can be recorded as a step.
type Func func(ctx context.Context, args ...any) error

// StepFunc wraps fn so that every call runs inside a new step. The title is
// formatted from the call arguments: {0}, {1} by position, {name} by the
// matching entry of names.
func (e *Execution) StepFunc(title string, names []string, fn Func) Func {
	return func(ctx context.Context, args ...any) error {
		params := repr.Capture(e.formatter, names, args)
		formatted := repr.FormatTitle(title, repr.Args(e.formatter, args), params)

		return e.Step(formatted, params).Run(ctx, func(ctx context.Context) error {
			return fn(ctx, args...)
		})
	}
}

// Step runs body as a step of the execution bound to ctx. Without one the
// body runs unrecorded.
func Step(ctx context.Context, title string, body hook.Body) error {
	e, ok := FromContext(ctx)
	if !ok {
		return body(ctx)
	}

	return e.Step(title, repr.Params{}).Run(ctx, body)
}

// FailStep sets the fail-mark of the innermost step running under ctx and
// reports whether there was one.
func FailStep(ctx context.Context, message string) bool {
	s, ok := StepFromContext(ctx)
	if !ok {
		return false
	}

	s.Fail(message)

	return true
}
