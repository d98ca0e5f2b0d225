package repr

import (
	"errors"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robotomize/go-allure/internal/allure"
)

type opaque struct {
	n int
}

type named string

func (n named) String() string {
	return "named:" + string(n)
}

func TestRepresent(t *testing.T) {
	t.Parallel()

	var nilErr error
	var nilPtr *opaque

	testCases := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "test_string", input: "abc", expected: "'abc'"},
		{name: "test_true", input: true, expected: "True"},
		{name: "test_false", input: false, expected: "False"},
		{name: "test_nil", input: nil, expected: "None"},
		{name: "test_nil_error", input: nilErr, expected: "None"},
		{name: "test_nil_pointer", input: nilPtr, expected: "None"},
		{name: "test_int", input: -42, expected: "-42"},
		{name: "test_uint", input: uint8(7), expected: "7"},
		{name: "test_float", input: 1.5, expected: "1.5"},
		{name: "test_bytes", input: []byte("raw"), expected: "<bytes>"},
		{name: "test_error", input: errors.New("bad"), expected: "bad"},
		{name: "test_stringer", input: named("x"), expected: "named:x"},
		{name: "test_slice", input: []any{1, "a", true}, expected: "[1, 'a', True]"},
		{name: "test_map_sorted", input: map[string]int{"b": 2, "a": 1}, expected: "{'a': 1, 'b': 2}"},
		{name: "test_struct", input: opaque{n: 1}, expected: "<repr.opaque>"},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				if diff := cmp.Diff(tc.expected, Represent(tc.input)); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestRepresent_OpaqueIdentity(t *testing.T) {
	t.Parallel()

	got := Represent(&opaque{n: 1})
	if !regexp.MustCompile(`^<\*repr\.opaque at 0x[0-9a-f]+>$`).MatchString(got) {
		t.Errorf("got: %q, want a type-name-plus-address placeholder", got)
	}

	fn := Represent(func() {})
	if !regexp.MustCompile(`^<func\(\) at 0x[0-9a-f]+>$`).MatchString(fn) {
		t.Errorf("got: %q, want a func placeholder", fn)
	}
}

func TestCapture_ComputedOnce(t *testing.T) {
	t.Parallel()

	values := []int{1, 2}
	p := Capture(nil, []string{"values", "flag"}, []any{values, true})

	values[0] = 100

	expected := []allure.Parameter{
		{Name: "values", Value: "[1, 2]"},
		{Name: "flag", Value: "True"},
	}
	if diff := cmp.Diff(expected, p.Parameters()); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestCapture_DeclarationOrder(t *testing.T) {
	t.Parallel()

	p := Capture(nil, []string{"z", "a", ""}, []any{1, 2, 3})

	expected := []allure.Parameter{
		{Name: "z", Value: "1"},
		{Name: "a", Value: "2"},
		{Name: "2", Value: "3"},
	}
	if diff := cmp.Diff(expected, p.Parameters()); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestFormatTitle(t *testing.T) {
	t.Parallel()

	params := Capture(nil, []string{"user", "count"}, []any{"bob", 3})
	args := Args(nil, []any{"bob", 3})

	testCases := []struct {
		name     string
		format   string
		expected string
	}{
		{name: "test_plain", format: "do X", expected: "do X"},
		{name: "test_positional", format: "login {0} x{1}", expected: "login 'bob' x3"},
		{name: "test_named", format: "login {user} x{count}", expected: "login 'bob' x3"},
		{name: "test_unknown_kept", format: "{missing} and {9}", expected: "{missing} and {9}"},
		{name: "test_unclosed", format: "open {user", expected: "open {user"},
		{name: "test_escaped_braces", format: "a {{b}}", expected: "a {b}"},
		{name: "test_escaped_around_placeholder", format: "{{{user}}}", expected: "{'bob'}"},
		{name: "test_lone_closing_brace", format: "a } b", expected: "a } b"},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				if diff := cmp.Diff(tc.expected, FormatTitle(tc.format, args, params)); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestCaseID(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff("True-foo-1", CaseID([]any{true, "foo", 1})); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if diff := cmp.Diff("test_x[False]", DisplayName("test_x", "False")); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestNewUUID_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewUUID()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
