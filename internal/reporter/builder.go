// Package reporter assembles lifecycle events into allure result trees.
package reporter

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/robotomize/go-allure/internal/allure"
	"github.com/robotomize/go-allure/internal/hook"
	"github.com/robotomize/go-allure/internal/repr"
	"github.com/robotomize/go-allure/internal/store"
)

var ErrUnknownContainer = errors.New("unknown container")

var hostname string

func init() {
	hostname, _ = os.Hostname()
}

// Sink receives finalized results. Results handed to a sink are never
// mutated again by the builder.
type Sink interface {
	WriteResult(ctx context.Context, result *allure.TestResult) error
	WriteContainer(ctx context.Context, container *allure.Container) error
}

// DedupPolicy decides what a failed dedup pass does to the test being finished.
type DedupPolicy int

const (
	// DedupStrict returns the dedup error from stop_test and drops the result.
	DedupStrict DedupPolicy = iota
	// DedupWarn logs the error and writes the result as it is.
	DedupWarn
)

type Option func(*Builder)

func WithSink(sink Sink) Option {
	return func(b *Builder) {
		b.sink = sink
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

func WithDedupPolicy(policy DedupPolicy) Option {
	return func(b *Builder) {
		b.policy = policy
	}
}

// WithDefaultLabels adds labels to every test result.
func WithDefaultLabels(labels ...allure.Label) Option {
	return func(b *Builder) {
		b.labels = append(b.labels, labels...)
	}
}

var (
	_ hook.TestListener        = (*Builder)(nil)
	_ hook.FixtureListener     = (*Builder)(nil)
	_ hook.StepListener        = (*Builder)(nil)
	_ hook.AttachListener      = (*Builder)(nil)
	_ hook.DynamicListener     = (*Builder)(nil)
	_ hook.AnnotationDecorator = (*Builder)(nil)
)

// node is an open container addressed by uuid. owner is the uuid of the test
// or result container the node belongs to, testUUID the test it runs in.
type node struct {
	owner    string
	testUUID string
	test     *allure.TestResult
	step    *allure.StepResult
	fixture *allure.FixtureResult
}

func (n *node) addStep(s *allure.StepResult) {
	switch {
	case n.test != nil:
		n.test.Steps = append(n.test.Steps, s)
	case n.step != nil:
		n.step.Steps = append(n.step.Steps, s)
	case n.fixture != nil:
		n.fixture.Steps = append(n.fixture.Steps, s)
	}
}

func (n *node) addAttachment(a allure.Attachment) {
	switch {
	case n.test != nil:
		n.test.Attachments = append(n.test.Attachments, a)
	case n.step != nil:
		n.step.Attachments = append(n.step.Attachments, a)
	case n.fixture != nil:
		n.fixture.Attachments = append(n.fixture.Attachments, a)
	}
}

// Builder is the result tree builder. It learns structure only from the ids
// carried on events and is safe for concurrent executions.
type Builder struct {
	mu         sync.Mutex
	nodes      map[string]*node
	containers map[string]*allure.Container
	// fixture containers created for tests, keyed by test uuid
	testContainers map[string]string
	dropped        map[string]struct{}

	store  store.Store
	sink   Sink
	dedup  *Deduplicator
	policy DedupPolicy
	labels []allure.Label
	logger *zap.Logger
}

func NewBuilder(st store.Store, opts ...Option) *Builder {
	b := &Builder{
		nodes:          make(map[string]*node),
		containers:     make(map[string]*allure.Container),
		testContainers: make(map[string]string),
		dropped:        make(map[string]struct{}),
		store:          st,
		logger:         zap.NewNop(),
	}

	for _, o := range opts {
		o(b)
	}

	b.dedup = NewDeduplicator(st, b.logger)

	return b
}

func (b *Builder) StartTest(_ context.Context, e hook.StartTestEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fullName := e.Meta.FullName
	if fullName == "" {
		fullName = e.Name
	}

	result := &allure.TestResult{
		UUID:        e.UUID,
		Name:        e.Name,
		FullName:    fullName,
		Stage:       allure.StageRunning,
		Steps:       make([]*allure.StepResult, 0),
		Attachments: make([]allure.Attachment, 0),
		Parameters:  nonNil(e.Parameters),
		Labels:      make([]allure.Label, 0, len(e.Meta.Labels)+len(b.labels)+4),
		Links:       append(make([]allure.Link, 0, len(e.Meta.Links)), e.Meta.Links...),
		Start:       e.Time.UnixMilli(),
	}

	result.Labels = append(result.Labels, e.Meta.Labels...)
	result.Labels = append(result.Labels, b.labels...)
	b.defaultLabels(result)

	b.nodes[e.UUID] = &node{owner: e.UUID, testUUID: e.UUID, test: result}

	if c, ok := b.containers[e.ParentUUID]; ok {
		c.Children = append(c.Children, e.UUID)
	}

	b.logger.Debug("start test", zap.String("uuid", e.UUID), zap.String("name", e.Name))

	return nil
}

func (b *Builder) defaultLabels(result *allure.TestResult) {
	defaults := []allure.Label{
		{Name: string(allure.LabelHost), Value: hostname},
		{Name: string(allure.LabelThread), Value: strconv.Itoa(os.Getpid())},
		{Name: string(allure.LabelLanguage), Value: "golang"},
		{Name: string(allure.LabelFramework), Value: "go-allure"},
	}

	for _, d := range defaults {
		if !hasLabelType(result.Labels, d.Name) {
			result.Labels = append(result.Labels, d)
		}
	}
}

func hasLabelType(labels []allure.Label, name string) bool {
	for _, l := range labels {
		if l.Name == name {
			return true
		}
	}

	return false
}

func (b *Builder) StopTest(ctx context.Context, e hook.StopTestEvent) error {
	result, container, err := b.finishTest(e)
	if err != nil {
		return err
	}

	if err = b.dedup.Run(ctx, result); err != nil {
		if b.policy == DedupStrict {
			return fmt.Errorf("reporter StopTest %s: %w", e.UUID, err)
		}

		b.logger.Warn("attachment dedup failed", zap.String("uuid", e.UUID), zap.Error(err))
	}

	if b.sink == nil {
		return nil
	}

	if container != nil {
		if err = b.sink.WriteContainer(ctx, container); err != nil {
			return fmt.Errorf("sink WriteContainer: %w", err)
		}
	}

	if err = b.sink.WriteResult(ctx, result); err != nil {
		return fmt.Errorf("sink WriteResult: %w", err)
	}

	return nil
}

// finishTest closes the test and forgets every node it owns.
func (b *Builder) finishTest(e hook.StopTestEvent) (*allure.TestResult, *allure.Container, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[e.UUID]
	if !ok || n.test == nil {
		return nil, nil, fmt.Errorf("stop test %s: %w", e.UUID, ErrUnknownContainer)
	}

	result := n.test
	result.Status = e.Outcome.Status
	result.StatusDetails = e.Outcome.Details
	result.Stage = allure.StageFinished
	result.Stop = e.Time.UnixMilli()
	result.TestCaseID = hash(result.FullName)
	result.HistoryID = hash(result.FullName, paramsKey(result.Parameters))

	for id, other := range b.nodes {
		if other.owner == e.UUID || other.testUUID == e.UUID {
			delete(b.nodes, id)
		}
	}

	var container *allure.Container
	if id, ok := b.testContainers[e.UUID]; ok {
		container = b.containers[id]
		container.Stop = result.Stop
		delete(b.containers, id)
		delete(b.testContainers, e.UUID)
	}

	b.logger.Debug(
		"stop test", zap.String("uuid", e.UUID), zap.String("status", string(result.Status)),
	)

	return result, container, nil
}

func hash(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func paramsKey(params []allure.Parameter) string {
	var buf bytes.Buffer
	for _, p := range params {
		buf.WriteString(p.Name)
		buf.WriteByte('=')
		buf.WriteString(p.Value)
		buf.WriteByte(';')
	}

	return buf.String()
}

func nonNil(params []allure.Parameter) []allure.Parameter {
	return append(make([]allure.Parameter, 0, len(params)), params...)
}

func (b *Builder) StartStep(_ context.Context, e hook.StartStepEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e.ParentUUID == "" {
		b.dropped[e.UUID] = struct{}{}
		b.logger.Warn("step outside of any test dropped", zap.String("title", e.Title))

		return nil
	}

	parent, ok := b.nodes[e.ParentUUID]
	if !ok {
		return fmt.Errorf("start step %s under %s: %w", e.UUID, e.ParentUUID, ErrUnknownContainer)
	}

	step := &allure.StepResult{
		Name:        e.Title,
		Stage:       allure.StageRunning,
		Steps:       make([]*allure.StepResult, 0),
		Attachments: make([]allure.Attachment, 0),
		Parameters:  nonNil(e.Parameters),
		Start:       e.Time.UnixMilli(),
	}

	parent.addStep(step)
	b.nodes[e.UUID] = &node{owner: parent.owner, testUUID: parent.testUUID, step: step}

	return nil
}

func (b *Builder) StopStep(_ context.Context, e hook.StopStepEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.dropped[e.UUID]; ok {
		delete(b.dropped, e.UUID)
		return nil
	}

	n, ok := b.nodes[e.UUID]
	if !ok || n.step == nil {
		return fmt.Errorf("stop step %s: %w", e.UUID, ErrUnknownContainer)
	}

	n.step.Status = e.Outcome.Status
	n.step.StatusDetails = e.Outcome.Details
	n.step.Stage = allure.StageFinished
	n.step.Stop = e.Time.UnixMilli()
	delete(b.nodes, e.UUID)

	return nil
}

func (b *Builder) StartFixture(_ context.Context, e hook.StartFixtureEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	container, err := b.fixtureContainer(e)
	if err != nil {
		return err
	}

	fixture := &allure.FixtureResult{
		Name:        e.Name,
		Stage:       allure.StageRunning,
		Steps:       make([]*allure.StepResult, 0),
		Attachments: make([]allure.Attachment, 0),
		Parameters:  nonNil(e.Parameters),
		Start:       e.Time.UnixMilli(),
	}

	if e.Kind == hook.FixtureAfter {
		container.Afters = append(container.Afters, fixture)
	} else {
		container.Befores = append(container.Befores, fixture)
	}

	var testUUID string
	if parent, ok := b.nodes[e.ParentUUID]; ok {
		testUUID = parent.testUUID
	}

	b.nodes[e.UUID] = &node{owner: container.UUID, testUUID: testUUID, fixture: fixture}

	return nil
}

// fixtureContainer finds the result container a fixture belongs to: the one
// named by the parent, the container of the parent's test, or a new
// standalone container sharing the fixture's uuid.
func (b *Builder) fixtureContainer(e hook.StartFixtureEvent) (*allure.Container, error) {
	if c, ok := b.containers[e.ParentUUID]; ok {
		return c, nil
	}

	if e.ParentUUID == "" {
		c := newContainer(e.UUID, e.Name, e.Time)
		b.containers[c.UUID] = c

		return c, nil
	}

	parent, ok := b.nodes[e.ParentUUID]
	if !ok {
		return nil, fmt.Errorf("start fixture %s under %s: %w", e.UUID, e.ParentUUID, ErrUnknownContainer)
	}

	if c, ok := b.containers[parent.owner]; ok {
		return c, nil
	}

	owner, ok := b.nodes[parent.owner]
	if !ok || owner.test == nil {
		return nil, fmt.Errorf("start fixture %s under %s: %w", e.UUID, e.ParentUUID, ErrUnknownContainer)
	}

	if id, ok := b.testContainers[parent.owner]; ok {
		return b.containers[id], nil
	}

	c := newContainer(repr.NewUUID(), owner.test.Name, e.Time)
	c.Children = append(c.Children, parent.owner)
	b.containers[c.UUID] = c
	b.testContainers[parent.owner] = c.UUID

	return c, nil
}

func newContainer(uuid, name string, at time.Time) *allure.Container {
	return &allure.Container{
		UUID:     uuid,
		Name:     name,
		Children: make([]string, 0),
		Befores:  make([]*allure.FixtureResult, 0),
		Afters:   make([]*allure.FixtureResult, 0),
		Start:    at.UnixMilli(),
	}
}

func (b *Builder) StopFixture(_ context.Context, e hook.StopFixtureEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[e.UUID]
	if !ok || n.fixture == nil {
		return fmt.Errorf("stop fixture %s: %w", e.UUID, ErrUnknownContainer)
	}

	n.fixture.Status = e.Outcome.Status
	n.fixture.StatusDetails = e.Outcome.Details
	n.fixture.Stage = allure.StageFinished
	n.fixture.Stop = e.Time.UnixMilli()

	if c, ok := b.containers[n.owner]; ok && c.Stop < n.fixture.Stop {
		c.Stop = n.fixture.Stop
	}

	delete(b.nodes, e.UUID)

	return nil
}

func (b *Builder) AttachData(ctx context.Context, e hook.AttachDataEvent) error {
	return b.attach(ctx, e.ParentUUID, e.Body, e.Name, e.Type)
}

func (b *Builder) AttachFile(ctx context.Context, e hook.AttachFileEvent) error {
	body, err := os.ReadFile(e.Source)
	if err != nil {
		return fmt.Errorf("reporter AttachFile: %w", err)
	}

	typ := e.Type
	if typ.Extension == "" && typ.MimeType == "" {
		typ = allure.AttachmentType{Extension: filepath.Ext(e.Source)}
	}

	return b.attach(ctx, e.ParentUUID, body, e.Name, typ)
}

func (b *Builder) attach(ctx context.Context, parentUUID string, body []byte, name string, typ allure.AttachmentType) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if parentUUID == "" {
		b.logger.Warn("attachment outside of any container dropped", zap.String("name", name))
		return nil
	}

	n, ok := b.nodes[parentUUID]
	if !ok {
		return fmt.Errorf("attach %q to %s: %w", name, parentUUID, ErrUnknownContainer)
	}

	if name == "" {
		name = allure.DefaultAttachmentName
	}

	typ = typ.Resolve(body)
	source := fmt.Sprintf("%s-attachment.%s", repr.NewUUID(), typ.Extension)

	if err := b.store.Put(ctx, source, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("store Put: %w", err)
	}

	n.addAttachment(allure.Attachment{Name: name, Source: source, Type: typ.MimeType})

	b.logger.Debug("attach", zap.String("parent", parentUUID), zap.String("source", source))

	return nil
}

// testOf resolves the test result the container uuid runs in. Fixtures opened
// outside a test have no test result.
func (b *Builder) testOf(hookName, uuid string) (*allure.TestResult, error) {
	if uuid == "" {
		b.logger.Warn("annotation outside of any test dropped", zap.String("hook", hookName))
		return nil, nil
	}

	n, ok := b.nodes[uuid]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", hookName, uuid, ErrUnknownContainer)
	}

	owner, ok := b.nodes[n.testUUID]
	if !ok || owner.test == nil {
		b.logger.Warn("annotation outside of any test dropped", zap.String("hook", hookName))
		return nil, nil
	}

	return owner.test, nil
}

func (b *Builder) mutate(hookName, uuid string, fn func(*allure.TestResult)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	result, err := b.testOf(hookName, uuid)
	if err != nil || result == nil {
		return err
	}

	fn(result)

	return nil
}

func (b *Builder) AddTitle(_ context.Context, e hook.AddTitleEvent) error {
	return b.mutate("add_title", e.UUID, func(r *allure.TestResult) {
		r.Name = e.Title
	})
}

func (b *Builder) AddDescription(_ context.Context, e hook.AddDescriptionEvent) error {
	return b.mutate("add_description", e.UUID, func(r *allure.TestResult) {
		r.Description = e.Description
	})
}

func (b *Builder) AddDescriptionHTML(_ context.Context, e hook.AddDescriptionHTMLEvent) error {
	return b.mutate("add_description_html", e.UUID, func(r *allure.TestResult) {
		r.DescriptionHTML = e.HTML
	})
}

func (b *Builder) AddLabel(_ context.Context, e hook.AddLabelEvent) error {
	return b.mutate("add_label", e.UUID, func(r *allure.TestResult) {
		for _, v := range e.Values {
			r.Labels = append(r.Labels, allure.Label{Name: string(e.Type), Value: v})
		}
	})
}

func (b *Builder) AddLink(_ context.Context, e hook.AddLinkEvent) error {
	return b.mutate("add_link", e.UUID, func(r *allure.TestResult) {
		name := e.Name
		if name == "" {
			name = e.URL
		}
		r.Links = append(r.Links, allure.Link{Name: name, URL: e.URL, Type: e.Type})
	})
}

// decorate returns a wrapper that applies an add_* event to the container
// current in the execution running the body.
func (b *Builder) decorate(hookName string, apply func(ctx context.Context, uuid string) error) hook.Wrapper {
	return func(next hook.Body) hook.Body {
		return func(ctx context.Context) error {
			uuid, ok := hook.CurrentUUID(ctx)
			if !ok {
				b.logger.Warn("decorated body runs outside of any test", zap.String("hook", hookName))
				return next(ctx)
			}

			if err := apply(ctx, uuid); err != nil {
				return err
			}

			return next(ctx)
		}
	}
}

func (b *Builder) DecorateAsTitle(title string) hook.Wrapper {
	return b.decorate("decorate_as_title", func(ctx context.Context, uuid string) error {
		return b.AddTitle(ctx, hook.AddTitleEvent{UUID: uuid, Title: title})
	})
}

func (b *Builder) DecorateAsDescription(description string) hook.Wrapper {
	return b.decorate("decorate_as_description", func(ctx context.Context, uuid string) error {
		return b.AddDescription(ctx, hook.AddDescriptionEvent{UUID: uuid, Description: description})
	})
}

func (b *Builder) DecorateAsDescriptionHTML(html string) hook.Wrapper {
	return b.decorate("decorate_as_description_html", func(ctx context.Context, uuid string) error {
		return b.AddDescriptionHTML(ctx, hook.AddDescriptionHTMLEvent{UUID: uuid, HTML: html})
	})
}

func (b *Builder) DecorateAsLabel(labelType allure.LabelType, values ...string) hook.Wrapper {
	return b.decorate("decorate_as_label", func(ctx context.Context, uuid string) error {
		return b.AddLabel(ctx, hook.AddLabelEvent{UUID: uuid, Type: labelType, Values: values})
	})
}

func (b *Builder) DecorateAsLink(url string, linkType allure.LinkType, name string) hook.Wrapper {
	return b.decorate("decorate_as_link", func(ctx context.Context, uuid string) error {
		return b.AddLink(ctx, hook.AddLinkEvent{UUID: uuid, URL: url, Type: linkType, Name: name})
	})
}

// Flush writes the containers that are still open, typically the ones opened
// by standalone fixtures.
func (b *Builder) Flush(ctx context.Context) error {
	b.mu.Lock()
	containers := make([]*allure.Container, 0, len(b.containers))
	for id, c := range b.containers {
		containers = append(containers, c)
		delete(b.containers, id)
	}
	clear(b.testContainers)
	b.mu.Unlock()

	if b.sink == nil {
		return nil
	}

	for _, c := range containers {
		if err := b.sink.WriteContainer(ctx, c); err != nil {
			return fmt.Errorf("sink WriteContainer: %w", err)
		}
	}

	return nil
}
