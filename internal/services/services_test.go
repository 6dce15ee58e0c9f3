package services

import (
	"context"
	"errors"
	"testing"
)

func TestPages(t *testing.T) {
	ctx := context.Background()
	next := "next"

	t.Run("advances offset until next is nil", func(t *testing.T) {
		var offsets []int
		pages := Pages(ctx, func(ctx context.Context, offset int) (*Page[int], error) {
			offsets = append(offsets, offset)
			switch offset {
			case 0:
				return &Page[int]{Items: []int{1, 2}, Next: &next}, nil
			case 2:
				return &Page[int]{Items: []int{3}, Next: &next}, nil
			default:
				return &Page[int]{Items: []int{4}}, nil
			}
		})

		all, err := Collect(pages)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("expected 4 items, got %v", all)
		}
		if len(offsets) != 3 || offsets[1] != 2 || offsets[2] != 3 {
			t.Errorf("unexpected offsets %v", offsets)
		}
	})

	t.Run("stops on empty page", func(t *testing.T) {
		calls := 0
		pages := Pages(ctx, func(ctx context.Context, offset int) (*Page[int], error) {
			calls++
			return &Page[int]{Next: &next}, nil
		})

		all, err := Collect(pages)
		if err != nil || len(all) != 0 {
			t.Errorf("expected empty result, got %v, %v", all, err)
		}
		if calls != 1 {
			t.Errorf("expected 1 fetch, got %d", calls)
		}
	})

	t.Run("propagates errors", func(t *testing.T) {
		boom := errors.New("boom")
		pages := Pages(ctx, func(ctx context.Context, offset int) (*Page[int], error) {
			if offset > 0 {
				return nil, boom
			}
			return &Page[int]{Items: []int{1}, Next: &next}, nil
		})

		if _, err := Collect(pages); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})

	t.Run("early break stops fetching", func(t *testing.T) {
		calls := 0
		pages := Pages(ctx, func(ctx context.Context, offset int) (*Page[int], error) {
			calls++
			return &Page[int]{Items: []int{offset}, Next: &next}, nil
		})

		for range pages {
			break
		}
		if calls != 1 {
			t.Errorf("expected 1 fetch, got %d", calls)
		}
	})
}
