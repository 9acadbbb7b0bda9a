package main

import (
	"testing"
)

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"gravity=1000, 2000", "max_release_per_frame=1,2,4"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "gravity" || names[1] != "max_release_per_frame" {
		t.Errorf("unexpected names %v", names)
	}
	if len(ranges[0]) != 2 || ranges[0][1] != 2000 {
		t.Errorf("unexpected gravity range %v", ranges[0])
	}
	if len(ranges[1]) != 3 || ranges[1][2] != 4 {
		t.Errorf("unexpected release range %v", ranges[1])
	}
}

func TestParseGridRejectsBadSpecs(t *testing.T) {
	for _, param := range []string{"gravity", "=1,2", "gravity=", "gravity=1,x"} {
		if _, _, err := parseGrid([]string{param}); err == nil {
			t.Errorf("expected error for %q", param)
		}
	}
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]float64{"max_lag": 1, "final_passed": 2, "peak_release": 3})
	want := []string{"final_passed", "max_lag", "peak_release"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
