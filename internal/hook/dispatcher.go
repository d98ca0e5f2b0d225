// Package hook is the in-process event bus between lifecycle contexts and
// whatever builds reports out of their events.
package hook

import (
	"context"
	"fmt"

	"github.com/robotomize/go-allure/internal/allure"
)

// Dispatcher fans events out to registered listeners in registration order.
// Register during initialisation only; dispatch never mutates the registry and
// may be used from many executions at once.
type Dispatcher struct {
	tests      []TestListener
	fixtures   []FixtureListener
	steps      []StepListener
	attaches   []AttachListener
	dynamics   []DynamicListener
	decorators []AnnotationDecorator
}

func NewDispatcher(listeners ...any) *Dispatcher {
	d := &Dispatcher{}
	for _, l := range listeners {
		d.Register(l)
	}

	return d
}

// Register adds the listener to every event group it implements and reports
// whether it implements at least one.
func (d *Dispatcher) Register(listener any) bool {
	var ok bool
	if l, is := listener.(TestListener); is {
		d.tests = append(d.tests, l)
		ok = true
	}
	if l, is := listener.(FixtureListener); is {
		d.fixtures = append(d.fixtures, l)
		ok = true
	}
	if l, is := listener.(StepListener); is {
		d.steps = append(d.steps, l)
		ok = true
	}
	if l, is := listener.(AttachListener); is {
		d.attaches = append(d.attaches, l)
		ok = true
	}
	if l, is := listener.(DynamicListener); is {
		d.dynamics = append(d.dynamics, l)
		ok = true
	}
	if l, is := listener.(AnnotationDecorator); is {
		d.decorators = append(d.decorators, l)
		ok = true
	}

	return ok
}

func fanOut[L any](hook string, listeners []L, call func(L) error) error {
	for _, l := range listeners {
		if err := call(l); err != nil {
			return fmt.Errorf("hook %s: %w", hook, err)
		}
	}

	return nil
}

func (d *Dispatcher) StartTest(ctx context.Context, e StartTestEvent) error {
	return fanOut("start_test", d.tests, func(l TestListener) error { return l.StartTest(ctx, e) })
}

func (d *Dispatcher) StopTest(ctx context.Context, e StopTestEvent) error {
	return fanOut("stop_test", d.tests, func(l TestListener) error { return l.StopTest(ctx, e) })
}

func (d *Dispatcher) StartFixture(ctx context.Context, e StartFixtureEvent) error {
	return fanOut("start_fixture", d.fixtures, func(l FixtureListener) error { return l.StartFixture(ctx, e) })
}

func (d *Dispatcher) StopFixture(ctx context.Context, e StopFixtureEvent) error {
	return fanOut("stop_fixture", d.fixtures, func(l FixtureListener) error { return l.StopFixture(ctx, e) })
}

func (d *Dispatcher) StartStep(ctx context.Context, e StartStepEvent) error {
	return fanOut("start_step", d.steps, func(l StepListener) error { return l.StartStep(ctx, e) })
}

func (d *Dispatcher) StopStep(ctx context.Context, e StopStepEvent) error {
	return fanOut("stop_step", d.steps, func(l StepListener) error { return l.StopStep(ctx, e) })
}

func (d *Dispatcher) AttachData(ctx context.Context, e AttachDataEvent) error {
	return fanOut("attach_data", d.attaches, func(l AttachListener) error { return l.AttachData(ctx, e) })
}

func (d *Dispatcher) AttachFile(ctx context.Context, e AttachFileEvent) error {
	return fanOut("attach_file", d.attaches, func(l AttachListener) error { return l.AttachFile(ctx, e) })
}

func (d *Dispatcher) AddTitle(ctx context.Context, e AddTitleEvent) error {
	return fanOut("add_title", d.dynamics, func(l DynamicListener) error { return l.AddTitle(ctx, e) })
}

func (d *Dispatcher) AddDescription(ctx context.Context, e AddDescriptionEvent) error {
	return fanOut("add_description", d.dynamics, func(l DynamicListener) error { return l.AddDescription(ctx, e) })
}

func (d *Dispatcher) AddDescriptionHTML(ctx context.Context, e AddDescriptionHTMLEvent) error {
	return fanOut(
		"add_description_html", d.dynamics, func(l DynamicListener) error { return l.AddDescriptionHTML(ctx, e) },
	)
}

func (d *Dispatcher) AddLabel(ctx context.Context, e AddLabelEvent) error {
	return fanOut("add_label", d.dynamics, func(l DynamicListener) error { return l.AddLabel(ctx, e) })
}

func (d *Dispatcher) AddLink(ctx context.Context, e AddLinkEvent) error {
	return fanOut("add_link", d.dynamics, func(l DynamicListener) error { return l.AddLink(ctx, e) })
}

// first returns the first non-nil wrapper, or Identity when nobody answers.
func first(decorators []AnnotationDecorator, call func(AnnotationDecorator) Wrapper) Wrapper {
	for _, d := range decorators {
		if w := call(d); w != nil {
			return w
		}
	}

	return Identity
}

func (d *Dispatcher) DecorateAsTitle(title string) Wrapper {
	return first(d.decorators, func(l AnnotationDecorator) Wrapper { return l.DecorateAsTitle(title) })
}

func (d *Dispatcher) DecorateAsDescription(description string) Wrapper {
	return first(d.decorators, func(l AnnotationDecorator) Wrapper { return l.DecorateAsDescription(description) })
}

func (d *Dispatcher) DecorateAsDescriptionHTML(html string) Wrapper {
	return first(d.decorators, func(l AnnotationDecorator) Wrapper { return l.DecorateAsDescriptionHTML(html) })
}

func (d *Dispatcher) DecorateAsLabel(labelType allure.LabelType, values ...string) Wrapper {
	return first(d.decorators, func(l AnnotationDecorator) Wrapper { return l.DecorateAsLabel(labelType, values...) })
}

func (d *Dispatcher) DecorateAsLink(url string, linkType allure.LinkType, name string) Wrapper {
	return first(d.decorators, func(l AnnotationDecorator) Wrapper { return l.DecorateAsLink(url, linkType, name) })
}
