package gotest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 1 << 20

// Set is the result of reading a stream. Err collects lines that could not be
// decoded; the rest of the stream is still read.
type Set struct {
	Err   error
	Tests []*Test
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &Reader{r: scanner}
}

type Reader struct {
	r *bufio.Scanner
}

// ReadAll builds the test tree. A subtest is attached to the closest ancestor
// seen before it; subtests without one become top-level tests.
func (r *Reader) ReadAll(ctx context.Context) (Set, error) {
	var (
		errs  []error
		tests []*Test
	)

	index := make(map[string]*Test)

	for r.r.Scan() {
		if err := ctx.Err(); err != nil {
			return Set{}, err
		}

		line := r.r.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var row Entry
		if err := json.Unmarshal(line, &row); err != nil {
			errs = append(errs, fmt.Errorf("json.Unmarshal: %w", err))
			continue
		}

		if row.TestName == "" {
			continue
		}

		key := row.Package + "/" + row.TestName

		tc, ok := index[key]
		if !ok {
			tc = &Test{Name: row.TestName, Package: row.Package}
			index[key] = tc

			if parent := findParent(index, row.Package, row.TestName); parent != nil {
				parent.Children = append(parent.Children, tc)
			} else {
				tests = append(tests, tc)
			}
		}

		tc.Update(row)
	}

	if err := r.r.Err(); err != nil {
		return Set{}, fmt.Errorf("scanner: %w", err)
	}

	return Set{Err: errors.Join(errs...), Tests: tests}, nil
}

func findParent(index map[string]*Test, pkg, name string) *Test {
	for {
		idx := strings.LastIndexByte(name, '/')
		if idx < 0 {
			return nil
		}

		name = name[:idx]
		if parent, ok := index[pkg+"/"+name]; ok {
			return parent
		}
	}
}
