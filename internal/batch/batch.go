package batch

import (
	"context"
	"fmt"
)

// Chunk splits items into consecutive slices of at most size elements. The
// returned slices share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Process hands each chunk of items to fn in order, waiting for one chunk to
// finish before starting the next. It stops at the first error fn returns.
func Process[T any](ctx context.Context, items []T, size int, fn func(ctx context.Context, chunk []T) error) error {
	if size <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", size)
	}
	for i, chunk := range Chunk(items, size) {
		if err := fn(ctx, chunk); err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
	}
	return nil
}
