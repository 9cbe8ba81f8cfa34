package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ryansname/sbox-sim/canbus"
	"github.com/ryansname/sbox-sim/message"
)

// sendTimeout bounds a single transmission so a full TX queue can't stall the schedule
const sendTimeout = 25 * time.Millisecond

// txWorker transmits one periodic message at its frequency until ctx is done.
// Disabled messages keep their slot but nothing is sent.
func txWorker(ctx context.Context, bus canbus.Bus, m *message.Periodic) {
	// Wait one period before the first send so messages don't all start together
	select {
	case <-time.After(m.Period()):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(m.Period())
	defer ticker.Stop()

	failing := false
	for {
		if m.Enabled() {
			err := transmit(ctx, bus, m)
			switch {
			case errors.Is(err, canbus.ErrClosed):
				return
			case err != nil && ctx.Err() == nil:
				// Only report the first failure of a run, 100 Hz of the same error is noise
				if !failing {
					log.Printf("%s failed to send: %v\n", m, err)
				}
				failing = true
			case err == nil && failing:
				log.Printf("%s sending again\n", m)
				failing = false
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func transmit(ctx context.Context, bus canbus.Bus, m *message.Periodic) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return bus.Send(sendCtx, m.Next())
}
