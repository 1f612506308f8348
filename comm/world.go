// Package comm is the message-passing layer every other package is written
// against: one goroutine per rank, communicating only through explicit,
// typed, non-blocking send/recv calls and a shared, cancellable
// context.Context for job-wide abort.
package comm

import (
	"context"
	"sync"

	"stencil/errs"
)

// Tag disambiguates concurrent messages between the same ordered pair of
// ranks. Halo exchange reserves eight distinct tag values (topology.Direction
// values 0..7) so that a rank that is its own neighbor in every direction
// (P=1) never collides a corner message with an edge message on the same
// channel.
type Tag int

// Request is a pending non-blocking send or receive.
type Request interface {
	// Wait blocks until the operation completes or ctx is done, whichever
	// happens first.
	Wait(ctx context.Context) error
}

// World is the per-rank handle into the message-passing layer.
type World interface {
	Rank() int
	Size() int
	// ISend posts a non-blocking send of data to dst tagged tag. data is
	// copied into a dedicated send buffer immediately, so callers may reuse
	// or mutate data as soon as ISend returns.
	ISend(dst int, tag Tag, data []byte) Request
	// IRecv posts a non-blocking receive tagged tag from src into buf. buf
	// must not be touched until the returned Request completes.
	IRecv(src int, tag Tag, buf []byte) Request
	// Barrier blocks until every rank in the world has called Barrier, or
	// until ctx is done, or until the job has been aborted.
	Barrier(ctx context.Context) error
	// Abort cancels the whole job's shared context with err as the cause.
	// Every rank's in-flight and future Wait/Barrier calls return promptly
	// with an error wrapping err, rather than leaving peers blocked.
	Abort(err error)
}

type request struct {
	done chan error
}

func (r *request) Wait(ctx context.Context) error {
	select {
	case err := <-r.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type chanKey struct {
	src, dst int
	tag      Tag
}

// transport is the state shared by every rank's World handle in a
// LocalWorld: per-(src,dst,tag) rendezvous channels plus the cancellable
// context that backs Abort.
type transport struct {
	size int

	mu    sync.Mutex
	chans map[chanKey]chan []byte

	ctx    context.Context
	cancel context.CancelCauseFunc

	barrierMu   sync.Mutex
	barrierCnt  int
	barrierWait chan struct{}
}

func (tr *transport) channel(key chanKey) chan []byte {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	ch, ok := tr.chans[key]
	if !ok {
		// Unbuffered: sender and receiver rendezvous directly. This is safe
		// under the mandated protocol ordering (post all receives, then all
		// sends, then wait) because the receiving goroutine is already
		// parked on the channel by the time any peer posts its send.
		ch = make(chan []byte)
		tr.chans[key] = ch
	}
	return ch
}

// NewLocalWorld builds `size` in-process ranks sharing one transport,
// returning one World handle per rank (in rank order) and the derived
// context every Abort call cancels.
func NewLocalWorld(ctx context.Context, size int) ([]World, context.Context) {
	if size <= 0 {
		panic("comm: world size must be positive")
	}
	derived, cancel := context.WithCancelCause(ctx)
	tr := &transport{
		size:        size,
		chans:       make(map[chanKey]chan []byte),
		ctx:         derived,
		cancel:      cancel,
		barrierWait: make(chan struct{}),
	}
	worlds := make([]World, size)
	for r := 0; r < size; r++ {
		worlds[r] = &rankWorld{rank: r, tr: tr}
	}
	return worlds, derived
}

type rankWorld struct {
	rank int
	tr   *transport
}

func (w *rankWorld) Rank() int { return w.rank }
func (w *rankWorld) Size() int { return w.tr.size }

func (w *rankWorld) ISend(dst int, tag Tag, data []byte) Request {
	// Send-buffer policy: copy into a dedicated buffer before posting, so
	// the caller's patch memory is never aliased by an in-flight send.
	buf := make([]byte, len(data))
	copy(buf, data)

	ch := w.tr.channel(chanKey{src: w.rank, dst: dst, tag: tag})
	done := make(chan error, 1)
	go func() {
		select {
		case ch <- buf:
			done <- nil
		case <-w.tr.ctx.Done():
			done <- errs.Commf("comm.ISend", "rank=%d dst=%d tag=%d aborted: %w", w.rank, dst, tag, context.Cause(w.tr.ctx))
		}
	}()
	return &request{done: done}
}

func (w *rankWorld) IRecv(src int, tag Tag, buf []byte) Request {
	ch := w.tr.channel(chanKey{src: src, dst: w.rank, tag: tag})
	done := make(chan error, 1)
	go func() {
		select {
		case data := <-ch:
			if len(data) != len(buf) {
				done <- errs.Internalf("comm.IRecv", "rank=%d src=%d tag=%d size mismatch: got %d want %d", w.rank, src, tag, len(data), len(buf))
				return
			}
			copy(buf, data)
			done <- nil
		case <-w.tr.ctx.Done():
			done <- errs.Commf("comm.IRecv", "rank=%d src=%d tag=%d aborted: %w", w.rank, src, tag, context.Cause(w.tr.ctx))
		}
	}()
	return &request{done: done}
}

// Barrier implements a reusable generational rendezvous: the last rank to
// arrive releases every waiter and resets the counter for the next call.
func (w *rankWorld) Barrier(ctx context.Context) error {
	tr := w.tr
	tr.barrierMu.Lock()
	tr.barrierCnt++
	if tr.barrierCnt == tr.size {
		tr.barrierCnt = 0
		release := tr.barrierWait
		tr.barrierWait = make(chan struct{})
		tr.barrierMu.Unlock()
		close(release)
		return nil
	}
	wait := tr.barrierWait
	tr.barrierMu.Unlock()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-tr.ctx.Done():
		return errs.Commf("comm.Barrier", "rank=%d aborted: %w", w.rank, context.Cause(tr.ctx))
	}
}

func (w *rankWorld) Abort(err error) {
	w.tr.cancel(err)
}
