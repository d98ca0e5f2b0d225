// Package exporter writes finalized results and containers as allure JSON files.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/robotomize/go-allure/internal/allure"
)

type WriterOption func(*Writer)

// WriteToFile makes the writer store result files in pth.
func WriteToFile(pth string) WriterOption {
	return func(w *Writer) {
		w.pth = pth
	}
}

// WriteReportTo echoes every encoded document to writers.
func WriteReportTo(writers ...io.Writer) WriterOption {
	return func(w *Writer) {
		w.reportWriters = append(w.reportWriters, writers...)
	}
}

// Writer serializes finalized results into the allure results directory.
type Writer struct {
	pth           string
	mu            sync.Mutex
	reportWriters []io.Writer
}

func NewWriter(opts ...WriterOption) *Writer {
	w := Writer{reportWriters: []io.Writer{io.Discard}}
	for _, o := range opts {
		o(&w)
	}

	return &w
}

// WriteResult writes <uuid>-result.json.
func (o *Writer) WriteResult(ctx context.Context, result *allure.TestResult) error {
	// Check if the context is done to return early.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := o.write(fmt.Sprintf("%s-result.json", result.UUID), result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	return nil
}

// WriteContainer writes <uuid>-container.json.
func (o *Writer) WriteContainer(ctx context.Context, container *allure.Container) error {
	// Return an error if the context is canceled.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := o.write(fmt.Sprintf("%s-container.json", container.UUID), container); err != nil {
		return fmt.Errorf("write container: %w", err)
	}

	return nil
}

// write encodes v to the console writers and, if a path is given, to name
// inside it.
func (o *Writer) write(name string, v any) (err error) {
	writers := make([]io.Writer, 0, len(o.reportWriters)+1)

	if o.pth != "" {
		// Create the directory if it does not exist.
		if err = os.MkdirAll(o.pth, 0o755); err != nil {
			return fmt.Errorf("os.MkdirAll: %w", err)
		}

		// Open the document file with 0644 permissions.
		file, openErr := os.OpenFile(filepath.Join(o.pth, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if openErr != nil {
			return fmt.Errorf("os.OpenFile: %w", openErr)
		}

		// Sync the file to disk before closing it.
		defer func() {
			if syncErr := file.Sync(); syncErr != nil && err == nil {
				err = fmt.Errorf("file Sync: %w", syncErr)
			}

			_ = file.Close()
		}()

		writers = append(writers, file)
	}

	// Encode the document in JSON format.
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}
	body = append(body, '\n')

	// Write the document to the result file.
	for _, w := range writers {
		if _, err = w.Write(body); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	// Console writers are shared between concurrent writes.
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err = io.MultiWriter(o.reportWriters...).Write(body); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
