package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/platform/worker"
)

type task struct {
	ctx context.Context
	fn  func(ctx context.Context)
}

// chatWorker runs the tasks of one chat in arrival order. Its goroutine
// exits when the queue runs dry and is restarted by the next Dispatch.
type chatWorker struct {
	queue chan task

	mu         sync.Mutex
	running    bool
	reserved   int
	retired    bool
	lastActive time.Time
}

// Dispatcher serializes work per chat while letting different chats run in
// parallel.
type Dispatcher struct {
	workers  *xsync.MapOf[int64, *chatWorker]
	queueLen int
	wg       sync.WaitGroup
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(queueLen int, logger *zerolog.Logger) *Dispatcher {
	if queueLen <= 0 {
		queueLen = defaultChatQueueLen
	}

	return &Dispatcher{
		workers:  xsync.NewMapOf[int64, *chatWorker](),
		queueLen: queueLen,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch queues fn for chatID. It blocks while the chat's queue is full
// and gives up when ctx is canceled. fn gets ctx without its cancellation so
// queued work still completes during shutdown.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID int64, fn func(ctx context.Context)) error {
	w := d.reserve(chatID)

	select {
	case w.queue <- task{ctx: context.WithoutCancel(ctx), fn: fn}:
	case <-ctx.Done():
		w.mu.Lock()
		w.reserved--
		w.mu.Unlock()

		return fmt.Errorf("dispatch to chat %d: %w", chatID, ctx.Err())
	}

	w.mu.Lock()
	w.reserved--

	if !w.running {
		w.running = true

		d.wg.Add(1)

		go d.run(chatID, w)
	}
	w.mu.Unlock()

	return nil
}

// reserve returns a live worker for chatID, holding a reservation that keeps
// Sweep from retiring it before the task is queued.
func (d *Dispatcher) reserve(chatID int64) *chatWorker {
	for {
		w, _ := d.workers.LoadOrCompute(chatID, func() *chatWorker {
			return &chatWorker{queue: make(chan task, d.queueLen)}
		})

		w.mu.Lock()
		if w.retired {
			w.mu.Unlock()

			continue
		}

		w.reserved++
		w.lastActive = d.now()
		w.mu.Unlock()

		return w
	}
}

func (d *Dispatcher) run(chatID int64, w *chatWorker) {
	defer d.wg.Done()

	for {
		select {
		case t := <-w.queue:
			d.execute(chatID, t)
		default:
			w.mu.Lock()
			if len(w.queue) == 0 {
				w.running = false
				w.mu.Unlock()

				return
			}
			w.mu.Unlock()
		}
	}
}

func (d *Dispatcher) execute(chatID int64, t task) {
	defer worker.RecoverPanic(d.logger, fmt.Sprintf("chat %d task", chatID))

	t.fn(t.ctx)
}

// Sweep forgets idle chats last used before cutoff and reports how many.
func (d *Dispatcher) Sweep(cutoff time.Time) int {
	var idle []int64

	d.workers.Range(func(chatID int64, w *chatWorker) bool {
		w.mu.Lock()
		if !w.running && w.reserved == 0 && w.lastActive.Before(cutoff) {
			idle = append(idle, chatID)
		}
		w.mu.Unlock()

		return true
	})

	removed := 0

	for _, chatID := range idle {
		d.workers.Compute(chatID, func(w *chatWorker, loaded bool) (*chatWorker, bool) {
			if !loaded {
				return w, true
			}

			w.mu.Lock()
			defer w.mu.Unlock()

			if w.running || w.reserved > 0 || len(w.queue) > 0 || !w.lastActive.Before(cutoff) {
				return w, false
			}

			w.retired = true
			removed++

			return w, true
		})
	}

	return removed
}

// Active is the number of chats the dispatcher currently tracks.
func (d *Dispatcher) Active() int {
	return d.workers.Size()
}

// Wait blocks until every queued task has run.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
