package physics

import "sync"

// stackPool recycles traversal stacks between bodies and steps.
type stackPool struct {
	pool sync.Pool
}

func newStackPool() *stackPool {
	return &stackPool{
		pool: sync.Pool{
			New: func() any {
				s := make([]int32, 0, 64)
				return &s
			},
		},
	}
}

func (p *stackPool) Get() *[]int32 {
	return p.pool.Get().(*[]int32)
}

func (p *stackPool) Put(s *[]int32) {
	*s = (*s)[:0]
	p.pool.Put(s)
}
