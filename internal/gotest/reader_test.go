package gotest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

const calcStream = `{"Time":"2024-01-01T10:00:00Z","Action":"start","Package":"example.com/calc"}
{"Time":"2024-01-01T10:00:00Z","Action":"run","Package":"example.com/calc","Test":"TestAdd"}
{"Time":"2024-01-01T10:00:00Z","Action":"output","Package":"example.com/calc","Test":"TestAdd","Output":"=== RUN   TestAdd\n"}
{"Time":"2024-01-01T10:00:01Z","Action":"run","Package":"example.com/calc","Test":"TestAdd/positive"}
{"Time":"2024-01-01T10:00:01Z","Action":"output","Package":"example.com/calc","Test":"TestAdd/positive","Output":"=== RUN   TestAdd/positive\n"}
{"Time":"2024-01-01T10:00:01.5Z","Action":"output","Package":"example.com/calc","Test":"TestAdd/positive","Output":"--- PASS: TestAdd/positive (0.50s)\n"}
{"Time":"2024-01-01T10:00:01.5Z","Action":"pass","Package":"example.com/calc","Test":"TestAdd/positive","Elapsed":0.5}
{"Time":"2024-01-01T10:00:02Z","Action":"run","Package":"example.com/calc","Test":"TestAdd/negative"}
{"Time":"2024-01-01T10:00:02Z","Action":"output","Package":"example.com/calc","Test":"TestAdd/negative","Output":"=== RUN   TestAdd/negative\n"}
{"Time":"2024-01-01T10:00:02.1Z","Action":"output","Package":"example.com/calc","Test":"TestAdd/negative","Output":"    calc_test.go:21: got 1, want -1\n"}
{"Time":"2024-01-01T10:00:02.2Z","Action":"output","Package":"example.com/calc","Test":"TestAdd/negative","Output":"--- FAIL: TestAdd/negative (0.20s)\n"}
{"Time":"2024-01-01T10:00:02.2Z","Action":"fail","Package":"example.com/calc","Test":"TestAdd/negative","Elapsed":0.2}
{"Time":"2024-01-01T10:00:02.5Z","Action":"output","Package":"example.com/calc","Test":"TestAdd","Output":"--- FAIL: TestAdd (2.50s)\n"}
{"Time":"2024-01-01T10:00:02.5Z","Action":"fail","Package":"example.com/calc","Test":"TestAdd","Elapsed":2.5}
{"Time":"2024-01-01T10:00:03Z","Action":"run","Package":"example.com/calc","Test":"TestSkip"}
{"Time":"2024-01-01T10:00:03Z","Action":"output","Package":"example.com/calc","Test":"TestSkip","Output":"=== RUN   TestSkip\n"}
{"Time":"2024-01-01T10:00:03Z","Action":"output","Package":"example.com/calc","Test":"TestSkip","Output":"    calc_test.go:30: not ready\n"}
{"Time":"2024-01-01T10:00:03Z","Action":"output","Package":"example.com/calc","Test":"TestSkip","Output":"--- SKIP: TestSkip (0.00s)\n"}
{"Time":"2024-01-01T10:00:03Z","Action":"skip","Package":"example.com/calc","Test":"TestSkip","Elapsed":0}
this line is not json
{"Time":"2024-01-01T10:00:04Z","Action":"run","Package":"example.com/calc","Test":"TestPanic"}
{"Time":"2024-01-01T10:00:04Z","Action":"output","Package":"example.com/calc","Test":"TestPanic","Output":"=== RUN   TestPanic\n"}
{"Time":"2024-01-01T10:00:04.1Z","Action":"output","Package":"example.com/calc","Test":"TestPanic","Output":"--- FAIL: TestPanic (0.10s)\n"}
{"Time":"2024-01-01T10:00:04.1Z","Action":"output","Package":"example.com/calc","Test":"TestPanic","Output":"panic: runtime error: index out of range [1] with length 0 [recovered]\n"}
{"Time":"2024-01-01T10:00:04.1Z","Action":"fail","Package":"example.com/calc","Test":"TestPanic","Elapsed":0.1}
{"Time":"2024-01-01T10:00:04.2Z","Action":"output","Package":"example.com/calc","Output":"FAIL\n"}
{"Time":"2024-01-01T10:00:04.2Z","Action":"fail","Package":"example.com/calc","Elapsed":4.2}
`

func TestReader_ReadAll(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected []*Test
		expErr   bool
	}{
		{
			name:  "test_nested_tree",
			input: calcStream,
			expected: []*Test{
				{
					Name: "TestAdd", Package: "example.com/calc", Status: ActionFail,
					Children: []*Test{
						{Name: "TestAdd/positive", Package: "example.com/calc", Status: ActionPass},
						{Name: "TestAdd/negative", Package: "example.com/calc", Status: ActionFail},
					},
				},
				{Name: "TestSkip", Package: "example.com/calc", Status: ActionSkip},
				{Name: "TestPanic", Package: "example.com/calc", Status: ActionFail},
			},
			expErr: true,
		},
		{
			name: "test_orphan_subtest_is_top_level",
			input: `{"Time":"2024-01-01T10:00:00Z","Action":"run","Package":"p","Test":"TestA/sub"}
{"Time":"2024-01-01T10:00:01Z","Action":"pass","Package":"p","Test":"TestA/sub","Elapsed":1}
`,
			expected: []*Test{
				{Name: "TestA/sub", Package: "p", Status: ActionPass},
			},
		},
		{
			name: "test_same_name_other_package",
			input: `{"Time":"2024-01-01T10:00:00Z","Action":"pass","Package":"a","Test":"TestX","Elapsed":0}
{"Time":"2024-01-01T10:00:00Z","Action":"pass","Package":"b","Test":"TestX","Elapsed":0}
`,
			expected: []*Test{
				{Name: "TestX", Package: "a", Status: ActionPass},
				{Name: "TestX", Package: "b", Status: ActionPass},
			},
		},
		{
			name:     "test_empty_input",
			input:    "",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				set, err := NewReader(strings.NewReader(tc.input)).ReadAll(context.Background())
				require.NoError(t, err)

				if tc.expErr {
					require.Error(t, set.Err)
				} else {
					require.NoError(t, set.Err)
				}

				if diff := cmp.Diff(
					tc.expected, set.Tests,
					cmpopts.IgnoreFields(Test{}, "Stage", "Start", "Stop", "Elapsed", "Output"),
				); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestReader_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(strings.NewReader(calcStream)).ReadAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTest_Accessors(t *testing.T) {
	t.Parallel()

	set, err := NewReader(strings.NewReader(calcStream)).ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Tests, 3)

	add := set.Tests[0]
	require.Equal(t, "example.com/calc/TestAdd", add.FullName())
	require.Equal(t, 2500*time.Millisecond, add.Elapsed)
	require.Equal(t, "negative", add.Children[1].ShortName())
	require.Equal(t, "calc_test.go:21: got 1, want -1", add.Children[1].Message())
	require.Empty(t, add.Message())

	expectedLog := "=== RUN   TestAdd\n--- FAIL: TestAdd (2.50s)\n" +
		"=== RUN   TestAdd/positive\n--- PASS: TestAdd/positive (0.50s)\n" +
		"=== RUN   TestAdd/negative\n    calc_test.go:21: got 1, want -1\n--- FAIL: TestAdd/negative (0.20s)\n"
	if diff := cmp.Diff(expectedLog, string(add.Log())); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	require.False(t, add.Panicked())
	require.True(t, set.Tests[2].Panicked())
}

func TestTest_StartFromElapsed(t *testing.T) {
	t.Parallel()

	stop := time.Date(2024, 1, 1, 10, 0, 5, 0, time.UTC)

	var tc Test
	tc.Update(Entry{Action: ActionPass, Time: stop, Elapsed: 1.5})

	require.Equal(t, stop.Add(-1500*time.Millisecond), tc.Start)
	require.True(t, tc.Finished())
}
