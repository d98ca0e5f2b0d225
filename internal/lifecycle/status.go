package lifecycle

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/robotomize/go-allure/internal/allure"
	"github.com/robotomize/go-allure/internal/hook"
)

// AssertionError is a condition explicitly violated by test logic. A container
// whose body returns one is failed; any other error makes it broken.
type AssertionError struct {
	cause error
}

func (e *AssertionError) Error() string {
	return e.cause.Error()
}

func (e *AssertionError) Unwrap() error {
	return e.cause
}

// Fail returns an assertion failure carrying the caller's stack.
func Fail(msg string) error {
	return &AssertionError{cause: errors.New(msg)}
}

func Failf(format string, args ...any) error {
	return &AssertionError{cause: errors.Errorf(format, args...)}
}

// Assert returns nil when cond holds and an assertion failure otherwise.
func Assert(cond bool, msg string) error {
	if cond {
		return nil
	}

	return &AssertionError{cause: errors.New(msg)}
}

func Assertf(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}

	return &AssertionError{cause: errors.Errorf(format, args...)}
}

// SkipError marks a container as skipped.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

func IsAssertion(err error) bool {
	var target *AssertionError
	return errors.As(err, &target)
}

func IsSkip(err error) bool {
	var target *SkipError
	return errors.As(err, &target)
}

// Classify maps the error that reached a container's exit to its outcome.
func Classify(err error) hook.Outcome {
	if err == nil {
		return hook.Outcome{Status: allure.StatusPass}
	}

	var skip *SkipError
	if errors.As(err, &skip) {
		return hook.Outcome{
			Status:  allure.StatusSkip,
			Details: &allure.StatusDetails{Message: skip.Reason},
			Err:     err,
		}
	}

	status := allure.StatusBroken
	if IsAssertion(err) {
		status = allure.StatusFail
	}

	return hook.Outcome{
		Status:  status,
		Details: &allure.StatusDetails{Message: err.Error(), Trace: trace(err)},
		Err:     err,
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func trace(err error) string {
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%s%+v", err.Error(), st.StackTrace())
	}

	return fmt.Sprintf("%+v", err)
}

func panicOutcome(r any, stack []byte) hook.Outcome {
	msg := fmt.Sprint(r)

	return hook.Outcome{
		Status:  allure.StatusBroken,
		Details: &allure.StatusDetails{Message: "panic: " + msg, Trace: string(stack)},
		Err:     fmt.Errorf("panic: %v", r),
	}
}

// abortedOutcome describes a body that neither returned nor panicked, as when
// testing.T.FailNow exits the goroutine.
func abortedOutcome() hook.Outcome {
	return hook.Outcome{
		Status:  allure.StatusFail,
		Details: &allure.StatusDetails{Message: "execution aborted before the body returned"},
	}
}
