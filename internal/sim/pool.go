package sim

import (
	"sync"

	"github.com/san-kum/sandglass/internal/sand"
)

// GrainPool recycles grain snapshots handed to other goroutines.
type GrainPool struct {
	pool sync.Pool
}

func NewGrainPool() *GrainPool {
	return &GrainPool{
		pool: sync.Pool{
			New: func() interface{} {
				s := make([]sand.Grain, 0, 1024)
				return &s
			},
		},
	}
}

func (p *GrainPool) Get() *[]sand.Grain {
	return p.pool.Get().(*[]sand.Grain)
}

func (p *GrainPool) Put(s *[]sand.Grain) {
	*s = (*s)[:0]
	p.pool.Put(s)
}

// Copy returns a pooled snapshot of src.
func (p *GrainPool) Copy(src []sand.Grain) *[]sand.Grain {
	dst := p.Get()
	*dst = append((*dst)[:0], src...)
	return dst
}
