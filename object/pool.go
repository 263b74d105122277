package object

import (
	"sync"

	"github.com/wippyai/objrt/vm"
)

// releasePool collects counts owned by handles that were garbage collected
// without Release. Cleanups run on their own goroutine without the lock, so
// they only queue; the Runtime releases the queue under the lock.
type releasePool struct {
	mu      sync.Mutex
	pending []vm.Ptr
}

func (p *releasePool) push(ptr vm.Ptr) {
	p.mu.Lock()
	p.pending = append(p.pending, ptr)
	p.mu.Unlock()
}

func (p *releasePool) take() []vm.Ptr {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pending
	p.pending = nil
	return out
}

func (p *releasePool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
