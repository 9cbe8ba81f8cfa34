package main

import (
	"fmt"
	"log"

	"github.com/ryansname/sbox-sim/chassis"
	"github.com/ryansname/sbox-sim/message"
	"github.com/ryansname/sbox-sim/rxstats"
	"github.com/ryansname/sbox-sim/sbox"
)

// Simulator bundles the model shared by all workers
type Simulator struct {
	SBox     *sbox.SBox
	Messages *message.Set
	Stats    *rxstats.Tracker
	Brake    *chassis.Brake // nil unless the ieb group is enabled
}

// newSimulator builds the SBox model and the full set of transmitted messages
func newSimulator(cfg Config) (*Simulator, error) {
	sim := &Simulator{
		SBox:     sbox.New(sbox.WithVoltage(cfg.Voltage)),
		Messages: message.NewSet(),
		Stats:    rxstats.NewTracker(),
	}

	if err := sim.Messages.Add(sim.SBox.Messages()...); err != nil {
		return nil, err
	}

	if cfg.HasGroup(GroupIEB) {
		sim.Brake = &chassis.Brake{}
		if err := sim.Messages.Add(chassis.IEBMessages(sim.Brake)...); err != nil {
			return nil, fmt.Errorf("ieb group: %w", err)
		}
	}
	if cfg.HasGroup(GroupSRS) {
		if err := sim.Messages.Add(chassis.SRSMessages()...); err != nil {
			return nil, fmt.Errorf("srs group: %w", err)
		}
	}

	if cfg.MessagesFile != "" {
		extra, err := message.LoadDefinitions(cfg.MessagesFile)
		if err != nil {
			return nil, err
		}
		if err := sim.Messages.Add(extra...); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.MessagesFile, err)
		}
		log.Printf("Loaded %d extra messages from %s\n", len(extra), cfg.MessagesFile)
	}

	return sim, nil
}
