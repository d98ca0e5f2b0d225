package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/robotomize/go-allure/internal/allure"
	"github.com/robotomize/go-allure/internal/hook"
)

// Annotations build static annotation wrappers through the decorate hooks.
type Annotations struct {
	d *hook.Dispatcher
}

func Static(d *hook.Dispatcher) Annotations {
	return Annotations{d: d}
}

func (e *Execution) Static() Annotations {
	return Static(e.dispatcher)
}

func (a Annotations) Title(title string) hook.Wrapper {
	return a.d.DecorateAsTitle(title)
}

func (a Annotations) Description(description string) hook.Wrapper {
	return a.d.DecorateAsDescription(description)
}

func (a Annotations) DescriptionHTML(html string) hook.Wrapper {
	return a.d.DecorateAsDescriptionHTML(html)
}

func (a Annotations) Label(labelType allure.LabelType, values ...string) hook.Wrapper {
	return a.d.DecorateAsLabel(labelType, values...)
}

func (a Annotations) Severity(severity allure.Severity) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelSeverity, string(severity))
}

func (a Annotations) Epic(epics ...string) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelEpic, epics...)
}

func (a Annotations) Feature(features ...string) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelFeature, features...)
}

func (a Annotations) Story(stories ...string) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelStory, stories...)
}

func (a Annotations) Suite(name string) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelSuite, name)
}

func (a Annotations) ParentSuite(name string) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelParentSuite, name)
}

func (a Annotations) SubSuite(name string) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelSubSuite, name)
}

func (a Annotations) Tag(tags ...string) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelTag, tags...)
}

func (a Annotations) ID(id string) hook.Wrapper {
	return a.d.DecorateAsLabel(allure.LabelID, id)
}

func (a Annotations) Link(url string, linkType allure.LinkType, name string) hook.Wrapper {
	return a.d.DecorateAsLink(url, linkType, name)
}

func (a Annotations) Issue(url, name string) hook.Wrapper {
	return a.d.DecorateAsLink(url, allure.LinkIssue, name)
}

func (a Annotations) TestCase(url, name string) hook.Wrapper {
	return a.d.DecorateAsLink(url, allure.LinkTestCase, name)
}

// Decorate applies wrappers to body; the first wrapper ends up outermost.
func Decorate(body hook.Body, wrappers ...hook.Wrapper) hook.Body {
	for i := len(wrappers) - 1; i >= 0; i-- {
		if wrappers[i] == nil {
			continue
		}
		body = wrappers[i](body)
	}

	return body
}

// Dynamic fires add_* hooks for the current container of an execution.
type Dynamic struct {
	e *Execution
}

func (e *Execution) Dynamic() Dynamic {
	return Dynamic{e: e}
}

func (d Dynamic) owner(hookName string) (string, bool) {
	uuid := d.e.Current()
	if uuid == "" {
		d.e.logger.Warn("no open container, annotation dropped", zap.String("hook", hookName))
		return "", false
	}

	return uuid, true
}

func (d Dynamic) Title(ctx context.Context, title string) error {
	uuid, ok := d.owner("add_title")
	if !ok {
		return nil
	}

	return d.e.dispatcher.AddTitle(ctx, hook.AddTitleEvent{UUID: uuid, Title: title})
}

func (d Dynamic) Description(ctx context.Context, description string) error {
	uuid, ok := d.owner("add_description")
	if !ok {
		return nil
	}

	return d.e.dispatcher.AddDescription(ctx, hook.AddDescriptionEvent{UUID: uuid, Description: description})
}

func (d Dynamic) DescriptionHTML(ctx context.Context, html string) error {
	uuid, ok := d.owner("add_description_html")
	if !ok {
		return nil
	}

	return d.e.dispatcher.AddDescriptionHTML(ctx, hook.AddDescriptionHTMLEvent{UUID: uuid, HTML: html})
}

func (d Dynamic) Label(ctx context.Context, labelType allure.LabelType, values ...string) error {
	uuid, ok := d.owner("add_label")
	if !ok {
		return nil
	}

	return d.e.dispatcher.AddLabel(ctx, hook.AddLabelEvent{UUID: uuid, Type: labelType, Values: values})
}

func (d Dynamic) Severity(ctx context.Context, severity allure.Severity) error {
	return d.Label(ctx, allure.LabelSeverity, string(severity))
}

func (d Dynamic) Feature(ctx context.Context, features ...string) error {
	return d.Label(ctx, allure.LabelFeature, features...)
}

func (d Dynamic) Story(ctx context.Context, stories ...string) error {
	return d.Label(ctx, allure.LabelStory, stories...)
}

func (d Dynamic) Tag(ctx context.Context, tags ...string) error {
	return d.Label(ctx, allure.LabelTag, tags...)
}

func (d Dynamic) Link(ctx context.Context, url string, linkType allure.LinkType, name string) error {
	uuid, ok := d.owner("add_link")
	if !ok {
		return nil
	}

	return d.e.dispatcher.AddLink(ctx, hook.AddLinkEvent{UUID: uuid, URL: url, Type: linkType, Name: name})
}

func (d Dynamic) Issue(ctx context.Context, url, name string) error {
	return d.Link(ctx, url, allure.LinkIssue, name)
}

func (d Dynamic) TestCase(ctx context.Context, url, name string) error {
	return d.Link(ctx, url, allure.LinkTestCase, name)
}

// Attach records body as an attachment of the current container.
func (e *Execution) Attach(ctx context.Context, body []byte, name string, typ allure.AttachmentType) error {
	uuid := e.Current()
	if uuid == "" {
		e.logger.Warn("no open container, attachment dropped", zap.String("name", name))
		return nil
	}

	if err := e.dispatcher.AttachData(ctx, hook.AttachDataEvent{
		ParentUUID: uuid,
		Body:       body,
		Name:       name,
		Type:       typ,
	}); err != nil {
		return fmt.Errorf("lifecycle.Attach: %w", err)
	}

	return nil
}

// AttachFile records a copy of the file at source as an attachment of the
// current container.
func (e *Execution) AttachFile(ctx context.Context, source, name string, typ allure.AttachmentType) error {
	uuid := e.Current()
	if uuid == "" {
		e.logger.Warn("no open container, attachment dropped", zap.String("source", source))
		return nil
	}

	if err := e.dispatcher.AttachFile(ctx, hook.AttachFileEvent{
		ParentUUID: uuid,
		Source:     source,
		Name:       name,
		Type:       typ,
	}); err != nil {
		return fmt.Errorf("lifecycle.AttachFile: %w", err)
	}

	return nil
}

// Attach is Execution.Attach for the execution bound to ctx, if any.
func Attach(ctx context.Context, body []byte, name string, typ allure.AttachmentType) error {
	e, ok := FromContext(ctx)
	if !ok {
		return nil
	}

	return e.Attach(ctx, body, name, typ)
}
