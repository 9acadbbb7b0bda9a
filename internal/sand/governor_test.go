package sand

import (
	"math"
	"testing"

	"github.com/san-kum/sandglass/internal/config"
)

func seeded(t *testing.T, count int, w, h float64) *Simulation {
	t.Helper()
	cfg := config.DefaultPhysics()
	cfg.ParticleCount = count
	s := New(cfg)
	s.Step(Input{Width: w, Height: h, Progress: 1}, 0)
	if got := s.Stats().Inactive; got != count {
		t.Fatalf("expected %d grains in the top pile, got %d", count, got)
	}
	return s
}

func released(s *Simulation) []Grain {
	var out []Grain
	for _, g := range s.grains {
		if g.Active {
			out = append(out, g)
		}
	}
	return out
}

func TestGovernStopsAtMaxRelease(t *testing.T) {
	s := seeded(t, 200, 400, 800)
	s.cfg.MaxReleasePerFrame = 4

	if n := s.govern(s.geo, 0, 1.0/60); n != 4 {
		t.Errorf("expected a clear gate to release exactly 4 grains, got %d", n)
	}
	if occ := s.EntranceOccupancy(); occ != 1 {
		t.Errorf("expected one grain in the entrance band, occupancy %d", occ)
	}
	if again := s.govern(s.geo, 0, 1.0/60); again != 0 {
		t.Errorf("expected an occupied gate to block releases, got %d", again)
	}
}

func TestGovernStopsAtSlotCount(t *testing.T) {
	s := seeded(t, 200, 400, 800)
	s.cfg.MaxReleasePerFrame = 64

	slots := s.geo.ReleaseSlots()
	if n := s.govern(s.geo, 0, 1.0/60); n != slots {
		t.Errorf("expected one release per slot (%d), got %d", slots, n)
	}
}

func TestGovernSpacesBatch(t *testing.T) {
	s := seeded(t, 200, 400, 800)
	s.cfg.MaxReleasePerFrame = 8

	n := s.govern(s.geo, 0, 1.0/60)
	batch := released(s)
	if n != 8 || len(batch) != 8 {
		t.Fatalf("expected 8 released grains, got %d (%d active)", n, len(batch))
	}
	minD := 2 * s.geo.Radius * contactSlop
	for i := range batch {
		for j := i + 1; j < len(batch); j++ {
			if d := math.Hypot(batch[i].X-batch[j].X, batch[i].Y-batch[j].Y); d < minD {
				t.Errorf("grains %d and %d released %.3f apart, want at least %.3f", i, j, d, minD)
			}
		}
		if batch[i].Y >= s.geo.NeckBottom-s.geo.Radius+1e-9 {
			t.Errorf("grain %d released below the neck at y=%.3f", i, batch[i].Y)
		}
	}
}

func TestGovernStopsAtBlockedSlot(t *testing.T) {
	s := seeded(t, 200, 400, 800)
	s.cfg.MaxReleasePerFrame = 8

	// An active grain parked on slot 2 blocks it and every slot below.
	idx := s.nextInactive(s.geo)
	s.release(idx, s.geo.CenterX, s.geo.ReleaseSlot(2))
	s.grains[idx].Freeze()

	if n := s.govern(s.geo, 0, 1.0/60); n != 2 {
		t.Errorf("expected releases to stop at the blocked slot, got %d", n)
	}
}

func TestGovernResumesWhenBatchMovesOn(t *testing.T) {
	s := seeded(t, 200, 400, 800)
	s.cfg.MaxReleasePerFrame = 3

	first := s.govern(s.geo, 0, 1.0/60)
	s.integrate(1.0 / 60)
	second := s.govern(s.geo, 0, 1.0/60)
	if first != 3 {
		t.Fatalf("expected a full first batch, got %d", first)
	}
	if second < 1 {
		t.Errorf("expected the gate to reopen once the batch moved down, got %d", second)
	}
	if occ := s.EntranceOccupancy(); occ > 1 {
		t.Errorf("expected at most one grain in the entrance band, got %d", occ)
	}
}

func TestGovernNeedsWholeGrain(t *testing.T) {
	s := seeded(t, 100, 400, 800)

	// Target is half a grain.
	released := s.govern(s.geo, 0.995, 1.0/60)
	if released != 0 {
		t.Errorf("expected no release below one needed grain, got %d", released)
	}
	if math.Abs(s.Carry()-0.25) > 1e-9 {
		t.Errorf("expected carry 0.25, got %.4f", s.Carry())
	}
}

func TestGovernNothingNeeded(t *testing.T) {
	s := seeded(t, 100, 400, 800)
	if released := s.govern(s.geo, 1, 1.0/60); released != 0 {
		t.Errorf("expected no release at full progress, got %d", released)
	}
	if s.Carry() != 0 {
		t.Errorf("expected carry untouched, got %.4f", s.Carry())
	}
}

func TestGovernBoundedByNeeded(t *testing.T) {
	s := seeded(t, 100, 400, 800)
	// Clear the gate after every release so only the budget limits.
	total := 0
	for k := 0; k < 100; k++ {
		n := s.govern(s.geo, 0.75, 1.0/60)
		if n > s.cfg.MaxReleasePerFrame {
			t.Fatalf("released %d grains in one step", n)
		}
		total += n
		for i := range s.grains {
			if s.grains[i].Active {
				s.grains[i].Y = s.geo.BottomY - s.geo.Radius
			}
		}
	}
	if total != 25 {
		t.Errorf("expected exactly 25 grains for a quarter target, got %d", total)
	}
}

func TestNextInactivePicksLowest(t *testing.T) {
	s := seeded(t, 300, 400, 800)

	idx := s.nextInactive(s.geo)
	if idx < 0 {
		t.Fatal("expected an inactive grain")
	}
	for i, g := range s.grains {
		if !g.Active && g.Y > s.grains[idx].Y+1e-9 {
			t.Fatalf("grain %d at y=%.3f is closer to the neck than the pick at %.3f", i, g.Y, s.grains[idx].Y)
		}
	}
	if dx := math.Abs(s.grains[idx].X - s.geo.CenterX); dx > s.geo.Radius*packPitch {
		t.Errorf("expected a grain near the centre line, dx=%.3f", dx)
	}
}

func TestReleasePlacesGrainInNeck(t *testing.T) {
	s := seeded(t, 50, 400, 800)
	idx := s.nextInactive(s.geo)
	x, y := s.dropPoint(s.geo, 0)
	s.release(idx, x, y)

	g := s.grains[idx]
	if !g.Active {
		t.Fatal("expected released grain to be active")
	}
	if !s.geo.InEntrance(g.X, g.Y) {
		t.Errorf("expected slot 0 inside the entrance band, y=%.3f", g.Y)
	}
	if dx := math.Abs(g.X - s.geo.CenterX); dx > s.geo.FlowHalfWidth {
		t.Errorf("expected grain inside the flow corridor, dx=%.3f", dx)
	}
	if _, vy := g.Velocity(); math.Abs(vy-releaseSpeed*g.Radius) > 1e-9 {
		t.Errorf("expected seed velocity %.3f, got %.3f", releaseSpeed*g.Radius, vy)
	}
}

func TestDrainEmptiesTop(t *testing.T) {
	s := seeded(t, 150, 400, 800)
	moved := s.drain(s.geo)
	if moved != 150 {
		t.Errorf("expected 150 grains drained, got %d", moved)
	}
	for i, g := range s.grains {
		if !g.Active || g.Y < s.geo.NeckBottom {
			t.Fatalf("grain %d left behind at y=%.3f active=%v", i, g.Y, g.Active)
		}
	}
}
