package sim

import (
	"errors"
	"testing"

	"github.com/san-kum/sandglass/internal/sand"
)

func TestFrameSample(t *testing.T) {
	f := Frame{
		Time:      1.5,
		Input:     sand.Input{Progress: 0.25, Running: true},
		Stats:     sand.Stats{Total: 10, Active: 7, Inactive: 3, Released: 1, Reseeds: 1},
		Occupancy: 1,
		Target:    7.5,
	}
	s := f.Sample()

	if s.Passed != 7 || s.Inactive != 3 {
		t.Errorf("expected 7 passed and 3 inactive, got %d/%d", s.Passed, s.Inactive)
	}
	if s.Progress != 0.25 || !s.Running {
		t.Errorf("expected running at 0.25, got %v/%v", s.Progress, s.Running)
	}
	if s.Target != 7.5 || s.Occupancy != 1 || s.Released != 1 {
		t.Errorf("unexpected sample %+v", s)
	}
}

func TestRunErrorUnwrap(t *testing.T) {
	err := &RunError{Step: 4, Time: 0.4, Wrapped: ErrLostGrains}
	if !errors.Is(err, ErrLostGrains) {
		t.Error("expected RunError to unwrap to its cause")
	}
	if err.Error() != "step 4 (t=0.400s): sim: grain count changed during run" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestGrainPool(t *testing.T) {
	p := NewGrainPool()
	src := []sand.Grain{{X: 1}, {X: 2}}

	snap := p.Copy(src)
	if len(*snap) != 2 || (*snap)[1].X != 2 {
		t.Fatalf("unexpected snapshot %+v", *snap)
	}
	src[1].X = 9
	if (*snap)[1].X != 2 {
		t.Error("snapshot should not alias the source")
	}
	p.Put(snap)
	if len(*snap) != 0 {
		t.Errorf("expected Put to empty the snapshot, got %d", len(*snap))
	}
}
