package engine

import (
	"sync/atomic"

	"github.com/spaghettifunk/glacier/engine/containers"
	"github.com/spaghettifunk/glacier/engine/core"
)

const commandQueueSize = 64

// MessageProxy posts user commands to a running engine. It is safe to use
// from any goroutine; commands are handled on the loop thread, in order,
// once per frame.
type MessageProxy[M any] struct {
	queue   *containers.RingQueue[core.WindowCommand[M]]
	stopped *atomic.Bool
}

func (p *MessageProxy[M]) Send(cmd core.WindowCommand[M]) error {
	if p.stopped.Load() {
		return core.ErrEngineStopped
	}
	return p.queue.Enqueue(cmd)
}

func (p *MessageProxy[M]) SendCustom(message M) error {
	return p.Send(core.CustomCommand(message))
}

func (p *MessageProxy[M]) RequestRedraw() error {
	return p.Send(core.RequestRedraw[M]())
}

func (p *MessageProxy[M]) RequestClose() error {
	return p.Send(core.RequestClose[M]())
}
