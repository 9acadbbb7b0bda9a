package sand_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/sand"
)

const frame = 1.0 / 60

func physics(count int) config.Physics {
	p := config.DefaultPhysics()
	p.ParticleCount = count
	return p
}

// maxOverlap is the worst penetration past the contact distance.
func maxOverlap(grains []sand.Grain) float64 {
	worst := 0.0
	for i := range grains {
		for j := i + 1; j < len(grains); j++ {
			a, b := grains[i], grains[j]
			d := math.Hypot(b.X-a.X, b.Y-a.Y)
			worst = math.Max(worst, (a.Radius+b.Radius)*1.02-d)
		}
	}
	return worst
}

func conserved(s *sand.Simulation, total int) {
	st := s.Stats()
	ExpectWithOffset(1, st.Total).To(Equal(total))
	ExpectWithOffset(1, st.Active+st.Inactive).To(Equal(total))
	ExpectWithOffset(1, s.Grains()).To(HaveLen(total))
}

var _ = Describe("Simulation", func() {
	Describe("reseeding", func() {
		It("packs 500 grains in 400x800 without overlap", func() {
			s := sand.New(physics(500))
			s.Step(sand.Input{Width: 400, Height: 800, Progress: 1}, 0)

			conserved(s, 500)
			Expect(s.Stats().Reseeds).To(Equal(1))
			Expect(s.Stats().Sampled).To(BeZero())
			Expect(maxOverlap(s.Grains())).To(BeNumerically("<=", 0.01))
			for _, g := range s.Grains() {
				Expect(g.Speed()).To(BeZero())
			}
		})

		It("splits the population by progress", func() {
			s := sand.New(physics(500))
			s.Step(sand.Input{Width: 400, Height: 800, Progress: 0.5}, 0)

			conserved(s, 500)
			Expect(s.Stats().Inactive).To(Equal(250))
			Expect(s.Stats().Passed()).To(Equal(250), "grains packed into the bottom count as passed")
			Expect(maxOverlap(s.Grains())).To(BeNumerically("<=", 0.01))
		})

		It("repacks exactly once when the width is halved mid-run", func() {
			s := sand.New(physics(300))
			for i := 0; i < 20; i++ {
				s.Step(sand.Input{Width: 400, Height: 800, Progress: 1 - float64(i)/200, Running: true}, frame)
			}
			Expect(s.Stats().Reseeds).To(Equal(1))

			s.Step(sand.Input{Width: 200, Height: 800, Progress: 0.9, Running: true}, frame)
			Expect(s.Stats().Reseeds).To(Equal(2))
			conserved(s, 300)

			for i := 0; i < 10; i++ {
				s.Step(sand.Input{Width: 200, Height: 800, Progress: 0.9, Running: true}, frame)
			}
			Expect(s.Stats().Reseeds).To(Equal(2))
			conserved(s, 300)
		})

		It("ignores sub-pixel size jitter", func() {
			s := sand.New(physics(100))
			s.Step(sand.Input{Width: 300, Height: 600, Progress: 1}, frame)
			s.Step(sand.Input{Width: 300.3, Height: 599.6, Progress: 1}, frame)
			Expect(s.Stats().Reseeds).To(Equal(1))
		})

		It("repacks when the particle count changes", func() {
			s := sand.New(physics(100))
			s.Step(sand.Input{Width: 300, Height: 600, Progress: 1}, frame)
			s.SetConfig(physics(150))
			s.Step(sand.Input{Width: 300, Height: 600, Progress: 1}, frame)

			Expect(s.Stats().Reseeds).To(Equal(2))
			conserved(s, 150)
		})

		It("refills the top when the timer is reset while stopped", func() {
			s := sand.New(physics(120))
			for i := 0; i <= 120; i++ {
				s.Step(sand.Input{Width: 300, Height: 600, Progress: 1 - float64(i)/240, Running: true}, frame)
			}
			s.Step(sand.Input{Width: 300, Height: 600, Progress: 0.5}, frame)
			Expect(s.Stats().Reseeds).To(Equal(1))

			s.Step(sand.Input{Width: 300, Height: 600, Progress: 1}, frame)
			Expect(s.Stats().Reseeds).To(Equal(2))
			Expect(s.Stats().Inactive).To(Equal(120))
		})

		It("is deterministic for a seed", func() {
			a := sand.New(physics(80))
			b := sand.New(physics(80))
			for i := 0; i < 90; i++ {
				in := sand.Input{Width: 200, Height: 400, Progress: 1 - float64(i)/90, Running: true}
				a.Step(in, frame)
				b.Step(in, frame)
			}
			Expect(a.Grains()).To(Equal(b.Grains()))
		})
	})

	Describe("a 10 second countdown of 100 grains", func() {
		var (
			s      *sand.Simulation
			passed []int
			peak   int
		)

		BeforeEach(func() {
			p := physics(100)
			p.MaxReleasePerFrame = 12
			s = sand.New(p)
			passed = passed[:0]
			peak = 0

			s.Step(sand.Input{Width: 200, Height: 400, Progress: 1, Running: true}, frame)
			for i := 1; i <= 600; i++ {
				in := sand.Input{Width: 200, Height: 400, Progress: 1 - float64(i)/600, Running: true}
				s.Step(in, frame)

				conserved(s, 100)
				passed = append(passed, s.Stats().Passed())
				peak = max(peak, s.EntranceOccupancy())
			}
		})

		It("tracks the target", func() {
			Expect(passed[len(passed)-1]).To(BeNumerically(">=", 99))
			Expect(passed[len(passed)-1]).To(BeNumerically("<=", 100))
		})

		It("never loses ground or bursts", func() {
			for i := 1; i < len(passed); i++ {
				Expect(passed[i]).To(BeNumerically(">=", passed[i-1]), "step %d", i)
				Expect(passed[i]-passed[i-1]).To(BeNumerically("<=", 12), "step %d", i)
			}
		})

		It("lets one grain through the gate at a time", func() {
			Expect(peak).To(BeNumerically("<=", 1))
		})

		It("finishes the backlog while still running", func() {
			for i := 0; i < 60; i++ {
				s.Step(sand.Input{Width: 200, Height: 400, Progress: 0, Running: true}, frame)
			}
			Expect(s.Stats().Passed()).To(Equal(100))
			Expect(s.Stats().Inactive).To(BeZero())
		})
	})

	Describe("presets keep pace with the timer", func() {
		const maxLag = 8.0

		for _, name := range config.ListPresets() {
			It(name, func() {
				cfg := config.GetPreset(name)
				total := cfg.Physics.ParticleCount
				steps := int(math.Round(cfg.Timer.Duration / frame))
				s := sand.New(cfg.Physics)
				s.Step(sand.Input{Width: 400, Height: 800, Progress: 1, Running: true}, frame)

				worst := 0.0
				for i := 1; i <= steps; i++ {
					progress := 1 - float64(i)/float64(steps)
					s.Step(sand.Input{Width: 400, Height: 800, Progress: progress, Running: true}, frame)

					target := (1 - progress) * float64(total)
					worst = math.Max(worst, target-float64(s.Stats().Passed()))
					Expect(s.EntranceOccupancy()).To(BeNumerically("<=", 1), "step %d", i)
					Expect(s.Stats().Released).To(BeNumerically("<=", cfg.Physics.MaxReleasePerFrame), "step %d", i)
				}
				conserved(s, total)
				Expect(worst).To(BeNumerically("<=", maxLag))
			})
		}
	})

	Describe("stopping at zero", func() {
		It("drains the top chamber on the next step", func() {
			s := sand.New(physics(300))
			for i := 0; i <= 30; i++ {
				s.Step(sand.Input{Width: 400, Height: 800, Progress: 1 - float64(i)/300, Running: true}, frame)
			}
			Expect(s.Stats().Inactive).To(BeNumerically(">", 0))

			s.Step(sand.Input{Width: 400, Height: 800, Progress: 0}, frame)
			conserved(s, 300)
			Expect(s.Stats().Drained).To(BeNumerically(">", 0))
			Expect(s.Stats().Inactive).To(BeZero())

			top := s.Geometry().NeckTop
			for _, g := range s.Grains() {
				Expect(g.Y).To(BeNumerically(">", top))
			}
		})

		It("does not drain when stopped mid-way", func() {
			s := sand.New(physics(100))
			s.Step(sand.Input{Width: 300, Height: 600, Progress: 1, Running: true}, frame)
			s.Step(sand.Input{Width: 300, Height: 600, Progress: 0.6}, frame)
			Expect(s.Stats().Drained).To(BeZero())
			Expect(s.Stats().Inactive).To(Equal(100))
		})
	})

	Describe("defensive inputs", func() {
		It("treats a NaN progress as empty and keeps every grain inside the glass", func() {
			s := sand.New(physics(60))
			s.Step(sand.Input{Width: 200, Height: 400, Progress: 1, Running: true}, frame)
			for i := 0; i < 30; i++ {
				s.Step(sand.Input{Width: 200, Height: 400, Progress: math.NaN(), Running: true}, 10)
			}
			Expect(s.Progress()).To(BeZero())
			conserved(s, 60)

			geo := s.Geometry()
			for _, g := range s.Grains() {
				Expect(g.Y).To(BeNumerically(">=", geo.TopY))
				Expect(g.Y).To(BeNumerically("<=", geo.BottomY))
				Expect(math.Abs(g.X - geo.CenterX)).To(BeNumerically("<=", geo.HalfWidthAt(g.Y, g.Active)+1e-6))
			}
		})

		It("survives a zero sized container", func() {
			s := sand.New(physics(40))
			Expect(func() {
				s.Step(sand.Input{Width: 0, Height: 0, Progress: 1}, frame)
			}).NotTo(Panic())
			conserved(s, 40)
		})
	})
})
