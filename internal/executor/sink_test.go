package executor

import (
	"context"

	"github.com/vk/slotflow/internal/notify"
)

// cancelAfter cancels the run once the named node has finished.
type cancelAfter struct {
	node   string
	cancel context.CancelFunc
}

func (c cancelAfter) Publish(_ context.Context, e notify.Event) {
	if e.Type == notify.NodeFinished && e.Node == c.node {
		c.cancel()
	}
}
