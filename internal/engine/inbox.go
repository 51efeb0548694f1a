package engine

import (
	"context"
	"sync"
)

// Incoming is one queued group chat message.
type Incoming struct {
	Author    string
	Text      string
	Timestamp string
}

// Outcome is the engine's verdict for one message.
type Outcome struct {
	Reply string
	Sent  bool
}

type job struct {
	message Incoming
	done    chan Outcome
}

// Inbox serializes message handling through a single worker, so replies
// always come back in arrival order no matter how many goroutines submit.
type Inbox struct {
	engine *Engine
	jobs   chan job

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewInbox starts the worker. Close must be called to stop it.
func NewInbox(engine *Engine, buffer int) *Inbox {
	if buffer < 1 {
		buffer = 1
	}
	inbox := &Inbox{
		engine: engine,
		jobs:   make(chan job, buffer),
	}
	inbox.wg.Add(1)
	go inbox.run()
	return inbox
}

func (i *Inbox) run() {
	defer i.wg.Done()
	for j := range i.jobs {
		reply, sent := i.engine.HandleIncomingMessage(
			context.Background(), j.message.Author, j.message.Text, j.message.Timestamp)
		j.done <- Outcome{Reply: reply, Sent: sent}
	}
}

// Submit queues a message and blocks until the worker has handled it.
func (i *Inbox) Submit(message Incoming) Outcome {
	j := job{message: message, done: make(chan Outcome, 1)}
	i.jobs <- j
	return <-j.done
}

// Close stops the worker after draining queued messages.
func (i *Inbox) Close() {
	i.closeOnce.Do(func() {
		close(i.jobs)
	})
	i.wg.Wait()
}
