package model

import "testing"

func TestSortedNames(t *testing.T) {
	t.Parallel()

	t.Run("orders case-insensitively", func(t *testing.T) {
		t.Parallel()

		results := map[string]PackageLicenseInfo{
			"c@1.0.0": {},
			"B@1.0.0": {},
			"a@1.0.0": {},
		}
		got := SortedNames(results)
		want := []string{"a@1.0.0", "B@1.0.0", "c@1.0.0"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, got)
			}
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()

		results := map[string]PackageLicenseInfo{
			"x": {}, "y": {}, "z": {}, "X": {}, "Y": {}, "Z": {},
		}
		first := SortedNames(results)
		for range 20 {
			again := SortedNames(results)
			for i := range first {
				if first[i] != again[i] {
					t.Fatalf("order changed: %v vs %v", first, again)
				}
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if got := SortedNames(nil); len(got) != 0 {
			t.Errorf("expected empty slice, got %v", got)
		}
	})
}
