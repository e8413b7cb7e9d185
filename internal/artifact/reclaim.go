// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/metrics"
)

// Trigger names the event that started a reclaim.
type Trigger string

const (
	TriggerComplete Trigger = "complete" // transfer finished
	TriggerClosed   Trigger = "closed"   // caller went away
	TriggerError    Trigger = "error"    // read or write failed mid-stream
	TriggerShutdown Trigger = "shutdown" // process is stopping
)

// Remove deletes path. A missing file is not an error, so repeated calls
// are harmless.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

// Reclaimer deletes delivered artifacts after a grace delay.
type Reclaimer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[*Claim]struct{}
	wg      sync.WaitGroup
}

// NewReclaimer creates a reclaimer with the given grace delay.
func NewReclaimer(delay time.Duration) *Reclaimer {
	return &Reclaimer{delay: delay, pending: make(map[*Claim]struct{})}
}

// Claim guards the deletion of one artifact: whichever trigger fires first
// wins and later triggers are ignored.
type Claim struct {
	r     *Reclaimer
	path  string
	once  sync.Once
	timer *time.Timer
	done  chan struct{}
	err   error
	by    Trigger
}

// Claim returns the deletion guard for path.
func (r *Reclaimer) Claim(path string) *Claim {
	return &Claim{r: r, path: path, done: make(chan struct{})}
}

// Trigger schedules deletion after the grace delay. Only the first call has
// any effect.
func (c *Claim) Trigger(ctx context.Context, by Trigger) {
	c.once.Do(func() {
		c.by = by
		c.r.wg.Add(1)
		if c.r.delay <= 0 {
			c.run(ctx)
			return
		}
		c.r.mu.Lock()
		c.r.pending[c] = struct{}{}
		c.timer = time.AfterFunc(c.r.delay, func() { c.run(ctx) })
		c.r.mu.Unlock()
	})
}

func (c *Claim) run(ctx context.Context) {
	defer c.r.wg.Done()
	c.r.mu.Lock()
	delete(c.r.pending, c)
	c.r.mu.Unlock()

	c.err = Remove(c.path)
	logger := log.WithComponentFromContext(context.WithoutCancel(ctx), "reclaim")
	if c.err != nil {
		metrics.IncReclaim(string(c.by), "error")
		logger.Warn().Err(c.err).Str(log.FieldPath, c.path).Str("trigger", string(c.by)).Msg("artifact reclaim failed")
	} else {
		metrics.IncReclaim(string(c.by), "removed")
		logger.Debug().Str(log.FieldEvent, "artifact.reclaimed").Str(log.FieldPath, c.path).
			Str("trigger", string(c.by)).Msg("artifact reclaimed")
	}
	close(c.done)
}

// Done is closed once the deletion has executed.
func (c *Claim) Done() <-chan struct{} { return c.done }

// Err returns the deletion result; valid after Done is closed.
func (c *Claim) Err() error { return c.err }

// Flush runs every pending deletion immediately and waits for all of them,
// or until ctx is done.
func (r *Reclaimer) Flush(ctx context.Context) error {
	r.mu.Lock()
	due := make([]*Claim, 0, len(r.pending))
	for c := range r.pending {
		if c.timer.Stop() {
			due = append(due, c)
		}
	}
	r.mu.Unlock()

	for _, c := range due {
		c.by = TriggerShutdown
		c.run(ctx)
	}

	waited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
