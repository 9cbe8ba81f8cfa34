package main

import (
	"context"
	"errors"
	"log"

	"github.com/ryansname/sbox-sim/canbus"
	"github.com/ryansname/sbox-sim/sbox"
)

// rxWorker reads frames from the bus, records statistics and feeds the SBox
// model with the frames it understands
func rxWorker(ctx context.Context, bus canbus.Bus, sim *Simulator) {
	toSBox := canbus.And(canbus.DataOnly(), canbus.ByIDs(sbox.RxIDs()...))
	ownIDs := canbus.ByIDs(sim.Messages.IDs()...)
	warned := make(map[uint32]bool)

	for {
		f, err := bus.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, canbus.ErrClosed) {
				log.Println("CAN bus closed, rx worker stopping")
				return
			}
			log.Printf("CAN receive failed: %v\n", err)
			continue
		}

		sim.Stats.Observe(f)

		// Another node sending one of our IDs means two transmitters are fighting
		if ownIDs(f) && !warned[f.ID] {
			log.Printf("WARNING: received %#03x which this simulator also transmits\n", f.ID)
			warned[f.ID] = true
		}

		if toSBox(f) {
			sim.SBox.HandleFrame(f)
		}
	}
}
