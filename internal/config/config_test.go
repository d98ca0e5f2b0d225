package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/robotomize/go-allure/internal/allure"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		body     string
		expErr   bool
		expected func() Config
	}{
		{
			name: "test_full_document",
			body: `
resultsDir: out
dedup: warn
log:
  level: debug
  format: json
labels:
  suite: api
  tags: [smoke]
  custom: ["owner:qa"]
publish:
  provider: minio
  bucket: results
  pathStyle: true
  concurrency: 8
`,
			expected: func() Config {
				cfg := Default()
				cfg.ResultsDir = "out"
				cfg.Dedup = "warn"
				cfg.Log = Log{Level: "debug", Format: "json"}
				cfg.Labels = Labels{Suite: "api", Tags: []string{"smoke"}, Custom: []string{"owner:qa"}}
				cfg.Publish = Publish{Provider: "minio", Bucket: "results", PathStyle: true, Concurrency: 8}
				return cfg
			},
		},
		{
			name:     "test_empty_document_keeps_defaults",
			body:     "",
			expected: Default,
		},
		{
			name:   "test_unknown_key_rejected",
			body:   "resultDir: typo\n",
			expErr: true,
		},
		{
			name:   "test_bad_enum_rejected",
			body:   "dedup: sometimes\n",
			expErr: true,
		},
		{
			name:   "test_bad_custom_label_rejected",
			body:   "labels:\n  custom: [\"novalue\"]\n",
			expErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				path := filepath.Join(t.TempDir(), "golurectl.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o600))

				cfg, err := Load(path)
				if tc.expErr {
					require.ErrorIs(t, err, ErrInvalid)
					return
				}
				require.NoError(t, err)

				if diff := cmp.Diff(tc.expected(), cfg); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"ALLURE_RESULTS_DIR":         "/tmp/results",
		"ALLURE_CLEAN":               "yes",
		"ALLURE_TAGS":                "a, b,,",
		"ALLURE_PUBLISH_CONCURRENCY": "16",
		"ALLURE_PUBLISH_PATH_STYLE":  "maybe",
	}

	cfg := Default()
	cfg.ApplyEnv(func(key string) string { return env[key] })

	require.Equal(t, "/tmp/results", cfg.ResultsDir)
	require.True(t, cfg.Clean)
	require.Equal(t, []string{"a", "b"}, cfg.Labels.Tags)
	require.Equal(t, 16, cfg.Publish.Concurrency)
	require.False(t, cfg.Publish.PathStyle)
	require.Equal(t, "strict", cfg.Dedup)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Dedup = "lenient"
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg = Default()
	cfg.ResultsDir = ""
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestAllureLabels(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Labels = Labels{
		Suite:  " MyFirstSuite ",
		Tags:   []string{"UNIT", ""},
		Layers: []string{"FUNCTIONAL"},
		Custom: []string{"key:value", "broken", "a:b:c", ":empty"},
	}

	expected := []allure.Label{
		{Name: "suite", Value: "MyFirstSuite"},
		{Name: "tag", Value: "UNIT"},
		{Name: "layer", Value: "FUNCTIONAL"},
		{Name: "key", Value: "value"},
	}
	if diff := cmp.Diff(expected, cfg.AllureLabels()); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}
