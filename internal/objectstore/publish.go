package objectstore

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type PublisherOption func(*Publisher)

func WithLogger(logger *zap.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithConcurrency bounds the number of parallel uploads.
func WithConcurrency(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// PublishReport lists the keys a Publish call uploaded and skipped.
type PublishReport struct {
	Uploaded []ObjectInfo
	Skipped  []string
}

// Publisher uploads results directories through a Provider.
type Publisher struct {
	provider    Provider
	logger      *zap.Logger
	concurrency int
}

func NewPublisher(provider Provider, opts ...PublisherOption) *Publisher {
	p := &Publisher{provider: provider, logger: zap.NewNop(), concurrency: 4}
	for _, o := range opts {
		o(p)
	}

	return p
}

// Publish uploads every regular file below dir, keyed by its slash separated
// path relative to dir. Objects that already exist with the same size are
// skipped.
func (p *Publisher) Publish(ctx context.Context, dir string) (PublishReport, error) {
	var report PublishReport

	remote, err := p.provider.List(ctx, "")
	if err != nil {
		return report, fmt.Errorf("provider List: %w", err)
	}

	sizes := make(map[string]int64, len(remote))
	for _, obj := range remote {
		sizes[obj.Key] = obj.Size
	}

	type localFile struct {
		key  string
		path string
		size int64
	}

	var files []localFile
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}

		files = append(files, localFile{key: filepath.ToSlash(rel), path: path, size: info.Size()})

		return nil
	})
	if err != nil {
		return report, fmt.Errorf("filepath.WalkDir: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, f := range files {
		if size, ok := sizes[p.remoteKey(f.key)]; ok && size == f.size {
			report.Skipped = append(report.Skipped, f.key)
			continue
		}

		g.Go(func() error {
			info, uploadErr := p.provider.Upload(gctx, f.key, f.path)
			if uploadErr != nil {
				return fmt.Errorf("provider Upload %s: %w", f.key, uploadErr)
			}

			p.logger.Debug("uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))

			mu.Lock()
			report.Uploaded = append(report.Uploaded, info)
			mu.Unlock()

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return report, err
	}

	return report, nil
}

// remoteKey is the key List reports for a local key. Providers apply their
// configured prefix on upload, so List results carry it too.
func (p *Publisher) remoteKey(key string) string {
	if pr, ok := p.provider.(interface{ prefix() string }); ok {
		return ResolveKey(pr.prefix(), key)
	}

	return key
}
