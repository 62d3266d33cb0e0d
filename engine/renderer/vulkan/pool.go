package vulkan

import "sync"

// queueLockPool hands out one mutex per queue family. Queues created from the
// same family share a VkQueue, and submissions to it must be serialised.
type queueLockPool struct {
	mu    sync.Mutex // Protects access to the locks map
	locks map[uint32]*sync.Mutex
}

func newQueueLockPool() *queueLockPool {
	return &queueLockPool{
		locks: make(map[uint32]*sync.Mutex),
	}
}

// forFamily returns the family's mutex, creating it on first use.
func (p *queueLockPool) forFamily(index uint32) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.locks[index]; !exists {
		p.locks[index] = &sync.Mutex{}
	}
	return p.locks[index]
}
