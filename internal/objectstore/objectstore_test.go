package objectstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProvider(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "test_minio", input: "MinIO", expected: "s3"},
		{name: "test_aws", input: " aws ", expected: "s3"},
		{name: "test_gcp", input: "gcp", expected: "gcs"},
		{name: "test_blob", input: "blob", expected: "azure"},
		{name: "test_unknown", input: "ftp", expected: "ftp"},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				if diff := cmp.Diff(tc.expected, NormalizeProvider(tc.input)); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestResolveKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		prefix   string
		key      string
		expected string
	}{
		{name: "test_no_prefix", key: "/a-result.json", expected: "a-result.json"},
		{name: "test_no_key", prefix: "/runs/1", expected: "runs/1"},
		{name: "test_joined", prefix: "runs/1", key: "a.json", expected: "runs/1/a.json"},
		{name: "test_trailing_slash", prefix: "runs/1/", key: "/a.json", expected: "runs/1/a.json"},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				if diff := cmp.Diff(tc.expected, ResolveKey(tc.prefix, tc.key)); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestBuildAzureContainerURL(t *testing.T) {
	t.Parallel()

	got, err := buildAzureContainerURL(Config{AzureAccount: "acct", Bucket: "results", AzureSASToken: "?sv=1"})
	require.NoError(t, err)
	require.Equal(t, "https://acct.blob.core.windows.net/results?sv=1", got)

	got, err = buildAzureContainerURL(Config{AzureEndpoint: "http://localhost:10000/dev/", Bucket: "results"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:10000/dev/results", got)

	_, err = buildAzureContainerURL(Config{Bucket: "results"})
	require.ErrorIs(t, err, errAzureAccount)
}

func TestNewProvider_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewProvider(ctx, Config{Bucket: "b"})
	require.ErrorIs(t, err, ErrProviderRequired)

	_, err = NewProvider(ctx, Config{Provider: "s3"})
	require.ErrorIs(t, err, ErrBucketRequired)

	_, err = NewProvider(ctx, Config{Provider: "ftp", Bucket: "b"})
	require.Error(t, err)
}

type memoryProvider struct {
	mu       sync.Mutex
	pfx      string
	objects  map[string]int64
	uploaded []string
	fail     error
}

func (m *memoryProvider) List(_ context.Context, _ string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ObjectInfo, 0, len(m.objects))
	for k, size := range m.objects {
		out = append(out, ObjectInfo{Key: k, Size: size})
	}

	return out, nil
}

func (m *memoryProvider) Upload(_ context.Context, key string, localPath string) (ObjectInfo, error) {
	if m.fail != nil {
		return ObjectInfo{}, m.fail
	}

	stat, err := os.Stat(localPath)
	if err != nil {
		return ObjectInfo{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	remote := ResolveKey(m.pfx, key)
	m.objects[remote] = stat.Size()
	m.uploaded = append(m.uploaded, key)

	return ObjectInfo{Key: remote, Size: stat.Size()}, nil
}

func (m *memoryProvider) Close() error {
	return nil
}

func (m *memoryProvider) prefix() string {
	return m.pfx
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-result.json"), []byte(`{"a":1}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-result.json"), []byte(`{"b":22}`), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "history"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history", "h.json"), []byte(`[]`), 0o600))

	provider := &memoryProvider{pfx: "runs/7", objects: map[string]int64{"runs/7/a-result.json": 7}}

	report, err := NewPublisher(provider, WithConcurrency(2)).Publish(context.Background(), dir)
	require.NoError(t, err)

	sort.Strings(provider.uploaded)
	if diff := cmp.Diff([]string{"b-result.json", "history/h.json"}, provider.uploaded); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
	require.Equal(t, []string{"a-result.json"}, report.Skipped)
	require.Len(t, report.Uploaded, 2)
}

func TestPublisher_UploadError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-result.json"), []byte(`{}`), 0o600))

	errDenied := errors.New("access denied")
	provider := &memoryProvider{objects: map[string]int64{}, fail: errDenied}

	_, err := NewPublisher(provider).Publish(context.Background(), dir)
	require.ErrorIs(t, err, errDenied)
}
