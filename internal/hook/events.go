package hook

import (
	"time"

	"github.com/robotomize/go-allure/internal/allure"
)

// FixtureKind tells whether a fixture prepares or tears down its parent.
type FixtureKind int

const (
	FixtureBefore FixtureKind = iota
	FixtureAfter
)

// TestMeta is static information about a test known before it starts.
type TestMeta struct {
	FullName string
	Labels   []allure.Label
	Links    []allure.Link
}

type StartTestEvent struct {
	ParentUUID string
	UUID       string
	Name       string
	Parameters []allure.Parameter
	Meta       TestMeta
	Time       time.Time
}

// Outcome is the final state of a container, computed by the lifecycle context
// from whatever error reached its exit point. Err is the raw error, if any.
type Outcome struct {
	Status  allure.Status
	Details *allure.StatusDetails
	Err     error
}

type StopTestEvent struct {
	ParentUUID string
	UUID       string
	Name       string
	Meta       TestMeta
	Outcome    Outcome
	Time       time.Time
}

type StartFixtureEvent struct {
	ParentUUID string
	UUID       string
	Name       string
	Kind       FixtureKind
	Parameters []allure.Parameter
	Time       time.Time
}

type StopFixtureEvent struct {
	ParentUUID string
	UUID       string
	Name       string
	Outcome    Outcome
	Time       time.Time
}

type StartStepEvent struct {
	ParentUUID string
	UUID       string
	Title      string
	Parameters []allure.Parameter
	Time       time.Time
}

type StopStepEvent struct {
	UUID    string
	Title   string
	Outcome Outcome
	Time    time.Time
}

// AttachDataEvent carries raw bytes to persist in the attachment store.
// ParentUUID is the container that was current when the attachment was made.
type AttachDataEvent struct {
	ParentUUID string
	Body       []byte
	Name       string
	Type       allure.AttachmentType
}

// AttachFileEvent references an existing file to copy into the attachment store.
type AttachFileEvent struct {
	ParentUUID string
	Source     string
	Name       string
	Type       allure.AttachmentType
}

// The add_* events name any open container; listeners resolve its test.

type AddTitleEvent struct {
	UUID  string
	Title string
}

type AddDescriptionEvent struct {
	UUID        string
	Description string
}

type AddDescriptionHTMLEvent struct {
	UUID string
	HTML string
}

type AddLabelEvent struct {
	UUID   string
	Type   allure.LabelType
	Values []string
}

type AddLinkEvent struct {
	UUID string
	URL  string
	Type allure.LinkType
	Name string
}
