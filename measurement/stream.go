package measurement

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// ForEachLine calls fn for every non-blank line of r in order. Lines are read
// with bufio.Reader so records longer than 64KB are fine.
func ForEachLine(ctx context.Context, r io.Reader, fn func(lineNo int, line []byte) error) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				if ferr := fn(lineNo, trimmed); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading line %d: %w", lineNo+1, err)
		}
	}
}

func decodeLine[T any](lineNo int, line []byte) (T, error) {
	var v T
	if err := json.Unmarshal(line, &v); err != nil {
		return v, &MalformedRecordError{Line: lineNo, Err: err}
	}
	return v, nil
}

type numberedLine struct {
	no   int
	data []byte
}

// Partition fans the lines of r out to workers goroutines. Each worker owns
// the accumulator returned by newAcc; the caller merges the returned
// accumulators. workers <= 1 runs inline on the calling goroutine.
func Partition[A any](ctx context.Context, r io.Reader, workers int, newAcc func() A, fn func(acc A, lineNo int, line []byte)) ([]A, error) {
	if workers <= 1 {
		acc := newAcc()
		err := ForEachLine(ctx, r, func(no int, line []byte) error {
			fn(acc, no, line)
			return nil
		})
		return []A{acc}, err
	}

	g, ctx := errgroup.WithContext(ctx)
	lines := make(chan numberedLine, workers*4)
	accs := make([]A, workers)

	g.Go(func() error {
		defer close(lines)
		return ForEachLine(ctx, r, func(no int, line []byte) error {
			select {
			case lines <- numberedLine{no, line}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})
	for i := 0; i < workers; i++ {
		accs[i] = newAcc()
		acc := accs[i]
		g.Go(func() error {
			for l := range lines {
				fn(acc, l.no, l.data)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return accs, nil
}
