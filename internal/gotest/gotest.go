package gotest

import (
	"strings"
	"time"
)

const (
	ActionOutput = "output"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionRun    = "run"
	ActionCont   = "cont"
	ActionPause  = "pause"
	ActionSkip   = "skip"
	ActionPanic  = "panic"
)

// Entry is one line of `go test -json` output.
type Entry struct {
	Time     time.Time
	TestName string `json:"Test"`
	Action   string
	Package  string
	Elapsed  float64
	Output   string
}

// Test is a test or subtest assembled from its entries. Children are the
// subtests in the order they started.
type Test struct {
	Name     string
	Package  string
	Stage    string
	Start    time.Time
	Stop     time.Time
	Status   string
	Elapsed  time.Duration
	Output   []string
	Children []*Test
}

func (t *Test) FullName() string {
	return t.Package + "/" + t.Name
}

// ShortName is the last path element of a subtest name.
func (t *Test) ShortName() string {
	if idx := strings.LastIndexByte(t.Name, '/'); idx >= 0 {
		return t.Name[idx+1:]
	}

	return t.Name
}

func (t *Test) Update(row Entry) {
	switch row.Action {
	case ActionCont:
		t.Stage = ActionCont
	case ActionSkip, ActionFail, ActionPass:
		t.Stop = row.Time
		t.Status = row.Action
		t.Stage = row.Action
		t.Elapsed = time.Duration(row.Elapsed * float64(time.Second))
		if t.Start.IsZero() {
			t.Start = t.Stop.Add(-t.Elapsed)
		}
	case ActionOutput:
		t.Output = append(t.Output, row.Output)
	case ActionPause:
		t.Stage = ActionPause
	case ActionRun:
		t.Start = row.Time
		t.Stage = ActionRun
	}
}

// Finished reports whether a final pass, fail or skip was recorded.
func (t *Test) Finished() bool {
	switch t.Status {
	case ActionPass, ActionFail, ActionSkip:
		return true
	default:
		return false
	}
}

// stopTime falls back to the start of a test that never reported a result.
func (t *Test) stopTime() time.Time {
	if t.Stop.IsZero() {
		return t.Start
	}

	return t.Stop
}

// Panicked reports whether the test output carries a runtime panic.
func (t *Test) Panicked() bool {
	for _, line := range t.Output {
		if strings.HasPrefix(strings.TrimSpace(line), "panic:") {
			return true
		}
	}

	return false
}

// Log is the test output followed by the logs of its subtests.
func (t *Test) Log() []byte {
	var b strings.Builder
	t.writeLog(&b)

	return []byte(b.String())
}

func (t *Test) writeLog(b *strings.Builder) {
	for _, line := range t.Output {
		b.WriteString(line)
	}

	for _, child := range t.Children {
		child.writeLog(b)
	}
}

// Message is the test's own output without the runner's framing lines.
func (t *Test) Message() string {
	lines := make([]string, 0, len(t.Output))
	for _, line := range t.Output {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isFrameLine(trimmed) {
			continue
		}

		lines = append(lines, trimmed)
	}

	return strings.Join(lines, "\n")
}

func isFrameLine(s string) bool {
	for _, prefix := range []string{"=== ", "--- ", "PASS", "FAIL", "ok "} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}
