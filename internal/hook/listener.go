package hook

import (
	"context"

	"github.com/robotomize/go-allure/internal/allure"
)

// Body is a unit of test code run inside a lifecycle context.
type Body func(ctx context.Context) error

// Wrapper is a decorator for a Body, returned by the decorate_as_* hooks.
type Wrapper func(Body) Body

// Identity leaves the body untouched.
func Identity(b Body) Body {
	return b
}

type TestListener interface {
	StartTest(ctx context.Context, e StartTestEvent) error
	StopTest(ctx context.Context, e StopTestEvent) error
}

type FixtureListener interface {
	StartFixture(ctx context.Context, e StartFixtureEvent) error
	StopFixture(ctx context.Context, e StopFixtureEvent) error
}

type StepListener interface {
	StartStep(ctx context.Context, e StartStepEvent) error
	StopStep(ctx context.Context, e StopStepEvent) error
}

type AttachListener interface {
	AttachData(ctx context.Context, e AttachDataEvent) error
	AttachFile(ctx context.Context, e AttachFileEvent) error
}

// DynamicListener receives the add_* hooks fired from inside a running test.
type DynamicListener interface {
	AddTitle(ctx context.Context, e AddTitleEvent) error
	AddDescription(ctx context.Context, e AddDescriptionEvent) error
	AddDescriptionHTML(ctx context.Context, e AddDescriptionHTMLEvent) error
	AddLabel(ctx context.Context, e AddLabelEvent) error
	AddLink(ctx context.Context, e AddLinkEvent) error
}

// AnnotationDecorator answers the decorate_as_* hooks. A nil Wrapper means the
// listener does not handle the annotation.
type AnnotationDecorator interface {
	DecorateAsTitle(title string) Wrapper
	DecorateAsDescription(description string) Wrapper
	DecorateAsDescriptionHTML(html string) Wrapper
	DecorateAsLabel(labelType allure.LabelType, values ...string) Wrapper
	DecorateAsLink(url string, linkType allure.LinkType, name string) Wrapper
}
