package allure

type Status string

const (
	StatusPass    Status = "passed"
	StatusFail    Status = "failed"
	StatusBroken  Status = "broken"
	StatusSkip    Status = "skipped"
	StatusUnknown Status = "unknown"
)

type Stage string

const (
	StageScheduled Stage = "scheduled"
	StageRunning   Stage = "running"
	StageFinished  Stage = "finished"
)

type LabelType string

const (
	LabelSeverity    LabelType = "severity"
	LabelEpic        LabelType = "epic"
	LabelFeature     LabelType = "feature"
	LabelStory       LabelType = "story"
	LabelSuite       LabelType = "suite"
	LabelParentSuite LabelType = "parentSuite"
	LabelSubSuite    LabelType = "subSuite"
	LabelTag         LabelType = "tag"
	LabelID          LabelType = "as_id"
	LabelHost        LabelType = "host"
	LabelThread      LabelType = "thread"
	LabelFramework   LabelType = "framework"
	LabelLanguage    LabelType = "language"
	LabelPackage     LabelType = "package"
	LabelTestClass   LabelType = "testClass"
	LabelTestMethod  LabelType = "testMethod"
	LabelLayer       LabelType = "layer"
)

type Severity string

const (
	SeverityBlocker  Severity = "blocker"
	SeverityCritical Severity = "critical"
	SeverityNormal   Severity = "normal"
	SeverityMinor    Severity = "minor"
	SeverityTrivial  Severity = "trivial"
)

type LinkType string

const (
	LinkGeneric  LinkType = "link"
	LinkIssue    LinkType = "issue"
	LinkTestCase LinkType = "tms"
)

type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Link struct {
	Name string   `json:"name,omitempty"`
	URL  string   `json:"url"`
	Type LinkType `json:"type"`
}

type Attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// StepResult is a step nested in a test, a fixture or another step.
type StepResult struct {
	Name          string         `json:"name"`
	Status        Status         `json:"status"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         Stage          `json:"stage"`
	Steps         []*StepResult  `json:"steps"`
	Attachments   []Attachment   `json:"attachments"`
	Parameters    []Parameter    `json:"parameters"`
	Start         int64          `json:"start"`
	Stop          int64          `json:"stop"`
}

// FixtureResult is a setup or teardown body recorded in a Container.
type FixtureResult struct {
	Name          string         `json:"name"`
	Status        Status         `json:"status"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         Stage          `json:"stage"`
	Steps         []*StepResult  `json:"steps"`
	Attachments   []Attachment   `json:"attachments"`
	Parameters    []Parameter    `json:"parameters"`
	Start         int64          `json:"start"`
	Stop          int64          `json:"stop"`
}

type TestResult struct {
	UUID            string         `json:"uuid"`
	TestCaseID      string         `json:"testCaseId"`
	HistoryID       string         `json:"historyId"`
	Name            string         `json:"name"`
	FullName        string         `json:"fullName"`
	Description     string         `json:"description,omitempty"`
	DescriptionHTML string         `json:"descriptionHtml,omitempty"`
	Status          Status         `json:"status"`
	StatusDetails   *StatusDetails `json:"statusDetails,omitempty"`
	Stage           Stage          `json:"stage"`
	Steps           []*StepResult  `json:"steps"`
	Attachments     []Attachment   `json:"attachments"`
	Parameters      []Parameter    `json:"parameters"`
	Labels          []Label        `json:"labels"`
	Links           []Link         `json:"links"`
	Start           int64          `json:"start"`
	Stop            int64          `json:"stop"`
}

// Container groups fixtures with the tests they ran around.
type Container struct {
	UUID     string           `json:"uuid"`
	Name     string           `json:"name,omitempty"`
	Children []string         `json:"children"`
	Befores  []*FixtureResult `json:"befores"`
	Afters   []*FixtureResult `json:"afters"`
	Start    int64            `json:"start"`
	Stop     int64            `json:"stop"`
}

// FlattenSteps returns every step of the test depth-first, nested steps included.
func (t *TestResult) FlattenSteps() []*StepResult {
	var out []*StepResult
	var walk func(steps []*StepResult)
	walk = func(steps []*StepResult) {
		for _, s := range steps {
			out = append(out, s)
			walk(s.Steps)
		}
	}
	walk(t.Steps)

	return out
}

// HasLabel reports whether the test carries a label of the given type and value.
func (t *TestResult) HasLabel(name LabelType, value string) bool {
	for _, l := range t.Labels {
		if l.Name == string(name) && l.Value == value {
			return true
		}
	}

	return false
}
