package mapper

import (
	"fmt"
	"testing"
)

func TestMapSlice(t *testing.T) {
	t.Run("nil input returns nil", func(t *testing.T) {
		got := MapSlice(nil, func(i int) string { return fmt.Sprintf("%d", i) })
		if got != nil {
			t.Errorf("MapSlice() = %v, want nil", got)
		}
	})

	t.Run("empty slice returns empty slice", func(t *testing.T) {
		got := MapSlice([]int{}, func(i int) string { return fmt.Sprintf("%d", i) })
		if got == nil || len(got) != 0 {
			t.Errorf("MapSlice() = %v, want empty slice", got)
		}
	})

	t.Run("maps all elements in order", func(t *testing.T) {
		got := MapSlice([]int{1, 2, 3}, func(i int) string { return fmt.Sprintf("num_%d", i) })
		want := []string{"num_1", "num_2", "num_3"}
		if len(got) != len(want) {
			t.Fatalf("MapSlice() length = %d, want %d", len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("MapSlice()[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})
}

func TestMapSlicePtr(t *testing.T) {
	intPtr := func(i int) *int { return &i }

	t.Run("nil input returns nil", func(t *testing.T) {
		var input []*int
		got := MapSlicePtr(input, func(i *int) *string {
			s := fmt.Sprintf("%d", *i)
			return &s
		})
		if got != nil {
			t.Errorf("MapSlicePtr() = %v, want nil", got)
		}
	})

	t.Run("nil elements are skipped", func(t *testing.T) {
		input := []*int{intPtr(1), nil, intPtr(3)}
		got := MapSlicePtr(input, func(i *int) *string {
			s := fmt.Sprintf("num_%d", *i)
			return &s
		})
		if len(got) != 2 {
			t.Fatalf("MapSlicePtr() length = %d, want 2", len(got))
		}
		if *got[0] != "num_1" || *got[1] != "num_3" {
			t.Errorf("MapSlicePtr() = [%v %v], want [num_1 num_3]", *got[0], *got[1])
		}
	})
}
