package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotomize/go-allure/internal/allure"
)

const exportStream = `{"Time":"2024-01-01T10:00:00Z","Action":"run","Package":"example.com/calc","Test":"TestAdd"}
{"Time":"2024-01-01T10:00:00Z","Action":"output","Package":"example.com/calc","Test":"TestAdd","Output":"=== RUN   TestAdd\n"}
{"Time":"2024-01-01T10:00:00.1Z","Action":"output","Package":"example.com/calc","Test":"TestAdd","Output":"--- PASS: TestAdd (0.10s)\n"}
{"Time":"2024-01-01T10:00:00.1Z","Action":"pass","Package":"example.com/calc","Test":"TestAdd","Elapsed":0.1}
{"Time":"2024-01-01T10:00:01Z","Action":"run","Package":"example.com/calc","Test":"TestSub"}
{"Time":"2024-01-01T10:00:01Z","Action":"output","Package":"example.com/calc","Test":"TestSub","Output":"    calc_test.go:40: got 3, want 1\n"}
{"Time":"2024-01-01T10:00:01.2Z","Action":"fail","Package":"example.com/calc","Test":"TestSub","Elapsed":0.2}
`

// TestExport drives the root command end to end, so it shares the package
// level flags and must not run in parallel.
func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	metricsFile := filepath.Join(t.TempDir(), "run.prom")

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(exportStream))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"-o", dir,
		"--silent",
		"--allure-suite", "calc",
		"--allure-labels", "owner:qa,broken",
		"--metrics", "--metrics-path", metricsFile,
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "Passed: 1\nFailed: 1\n")

	matches, err := filepath.Glob(filepath.Join(dir, "*-result.json"))
	require.NoError(t, err)
	require.Len(t, matches, 2)

	byName := make(map[string]allure.TestResult)
	for _, m := range matches {
		body, readErr := os.ReadFile(m)
		require.NoError(t, readErr)

		var result allure.TestResult
		require.NoError(t, json.Unmarshal(body, &result))
		byName[result.Name] = result
	}

	add := byName["TestAdd"]
	require.Equal(t, allure.StatusPass, add.Status)
	require.True(t, add.HasLabel(allure.LabelSuite, "calc"))
	require.True(t, add.HasLabel("owner", "qa"))
	require.Empty(t, add.Attachments)

	sub := byName["TestSub"]
	require.Equal(t, allure.StatusFail, sub.Status)
	require.Equal(t, "calc_test.go:40: got 3, want 1", sub.StatusDetails.Message)
	require.Len(t, sub.Attachments, 1)

	_, err = os.Stat(filepath.Join(dir, sub.Attachments[0].Source))
	require.NoError(t, err)

	body, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	require.Contains(t, string(body), `allure_tests_total{status="failed"} 1`)
}
