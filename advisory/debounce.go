package advisory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pulsepoint/eris-api/models"
)

// DefaultDebounce is how long a description must stay unchanged before it is classified
const DefaultDebounce = time.Second

// ErrSuperseded is returned to a request replaced by a newer one for the same session
var ErrSuperseded = errors.New("suggestion superseded by a newer description")

// Debouncer coalesces rapid suggestion requests per session. Each request
// waits out the delay; only the last one for a session reaches the advisor.
type Debouncer struct {
	advisor Advisor
	delay   time.Duration

	mu   sync.Mutex
	seqs map[string]uint64
}

// NewDebouncer wraps advisor. A zero delay uses DefaultDebounce.
func NewDebouncer(advisor Advisor, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{advisor: advisor, delay: delay, seqs: make(map[string]uint64)}
}

// Suggest waits out the delay and asks the advisor, unless a newer request
// for session arrived meanwhile, in which case ErrSuperseded is returned.
func (d *Debouncer) Suggest(ctx context.Context, session, description string) (models.Priority, bool, error) {
	d.mu.Lock()
	d.seqs[session]++
	seq := d.seqs[session]
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		d.release(session, seq)
		return 0, false, ctx.Err()
	case <-timer.C:
	}

	if !d.release(session, seq) {
		return 0, false, ErrSuperseded
	}

	p, ok := d.advisor.Suggest(ctx, description)
	return p, ok, nil
}

// release forgets session if seq is still its latest request
func (d *Debouncer) release(session string, seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seqs[session] != seq {
		return false
	}
	delete(d.seqs, session)
	return true
}
