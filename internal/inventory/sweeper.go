package inventory

import (
	"context"
	"log"
	"time"
)

// Sweeper releases expired ACTIVE reservations on a fixed interval,
// independent of request traffic. Sweep failures are logged and retried on
// the next tick; they never take the process down.
type Sweeper struct {
	Ledger   Ledger
	Interval time.Duration

	done chan struct{}
}

func NewSweeper(ledger Ledger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{Ledger: ledger, Interval: interval, done: make(chan struct{})}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		t := time.NewTicker(s.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := s.Ledger.ExpireDue(ctx, time.Now().UTC())
				if err != nil {
					log.Printf("reservation sweep: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("reservation sweep: released %d expired reservations", n)
				}
			}
		}
	}()
}

// Wait blocks until the sweep loop has exited after context cancellation.
func (s *Sweeper) Wait() { <-s.done }
