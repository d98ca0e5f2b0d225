package reporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"

	"github.com/robotomize/go-allure/internal/allure"
	"github.com/robotomize/go-allure/internal/store"
)

// Deduplicator drops top-level attachments of a finished test that repeat an
// attachment made inside one of its steps.
type Deduplicator struct {
	store  store.Store
	logger *zap.Logger
}

func NewDeduplicator(st store.Store, logger *zap.Logger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Deduplicator{store: st, logger: logger}
}

// Run removes every top-level attachment equal in name, type and content to
// a step attachment, and deletes its file unless the step shares it. Files
// that can not be read fail the pass. Running it again changes nothing.
func (d *Deduplicator) Run(ctx context.Context, result *allure.TestResult) error {
	if len(result.Attachments) == 0 {
		return nil
	}

	for _, step := range result.FlattenSteps() {
		for _, a := range step.Attachments {
			idx, err := d.find(ctx, result.Attachments, a)
			if err != nil {
				return fmt.Errorf("dedup %s: %w", result.UUID, err)
			}

			if idx < 0 {
				continue
			}

			dup := result.Attachments[idx]
			result.Attachments = slices.Delete(result.Attachments, idx, idx+1)

			if dup.Source != a.Source {
				if err = d.store.Remove(ctx, dup.Source); err != nil {
					return fmt.Errorf("dedup %s: %w", result.UUID, err)
				}
			}

			d.logger.Debug(
				"duplicate attachment removed",
				zap.String("uuid", result.UUID),
				zap.String("name", dup.Name),
				zap.String("source", dup.Source),
			)

			if len(result.Attachments) == 0 {
				return nil
			}
		}
	}

	return nil
}

// find returns the index of the first top-level attachment duplicating a.
func (d *Deduplicator) find(ctx context.Context, top []allure.Attachment, a allure.Attachment) (int, error) {
	var body []byte
	for i, candidate := range top {
		if candidate.Name != a.Name || candidate.Type != a.Type {
			continue
		}

		if candidate.Source == a.Source {
			return i, nil
		}

		if body == nil {
			b, err := d.read(ctx, a.Source)
			if err != nil {
				return -1, err
			}
			body = b
		}

		other, err := d.read(ctx, candidate.Source)
		if err != nil {
			return -1, err
		}

		if bytes.Equal(body, other) {
			return i, nil
		}
	}

	return -1, nil
}

func (d *Deduplicator) read(ctx context.Context, name string) ([]byte, error) {
	rc, err := d.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	if body == nil {
		body = []byte{}
	}

	return body, nil
}
