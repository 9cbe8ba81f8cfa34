package main

import (
	"context"
	"log"
	"time"

	"github.com/ryansname/sbox-sim/rxstats"
	"github.com/ryansname/sbox-sim/sbox"
)

// statusInterval is how often the model is sampled for the front ends
const statusInterval = 250 * time.Millisecond

// StatusData is one sample of everything the front ends display
type StatusData struct {
	Time    time.Time
	SBox    sbox.State
	Rate    int // received messages per second
	RxIDs   []rxstats.IDStats
	Braking bool
}

// RxID returns the statistics for one received arbitration ID
func (d *StatusData) RxID(id uint32) (rxstats.IDStats, bool) {
	for _, s := range d.RxIDs {
		if s.ID == id {
			return s, true
		}
	}
	return rxstats.IDStats{}, false
}

// sample takes a StatusData snapshot of the simulator
func (sim *Simulator) sample(now time.Time) StatusData {
	data := StatusData{
		Time:  now,
		SBox:  sim.SBox.Snapshot(),
		Rate:  sim.Stats.Rate(),
		RxIDs: sim.Stats.Snapshot(),
	}
	if sim.Brake != nil {
		data.Braking = sim.Brake.Braking()
	}
	return data
}

// statusWorker samples the simulator periodically and publishes StatusData
func statusWorker(ctx context.Context, sim *Simulator, outputChan chan<- StatusData) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			select {
			case outputChan <- sim.sample(now):
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// logWorker reports state transitions in headless mode
func logWorker(ctx context.Context, dataChan <-chan StatusData) {
	var prev *StatusData
	for {
		select {
		case data := <-dataChan:
			for _, line := range describeChanges(prev, data) {
				log.Println(line)
			}
			prev = &data
		case <-ctx.Done():
			return
		}
	}
}

// describeChanges lists human readable transitions between two samples.
// A nil prev describes the initial state.
func describeChanges(prev *StatusData, cur StatusData) []string {
	var lines []string

	if prev == nil || prev.SBox.Setup != cur.SBox.Setup {
		if cur.SBox.Setup {
			lines = append(lines, "Contactor setup received")
		} else if prev != nil {
			lines = append(lines, "Contactor setup lost")
		}
	}

	if prev == nil || prev.SBox.Contactors != cur.SBox.Contactors {
		lines = append(lines, "Contactors: "+cur.SBox.Contactors.String())
	}

	if prev != nil && prev.SBox.Precharging != cur.SBox.Precharging {
		if cur.SBox.Precharging {
			lines = append(lines, "Pre-charge started")
		} else {
			lines = append(lines, "Pre-charge finished")
		}
	}

	switch {
	case (prev == nil || prev.Rate == 0) && cur.Rate > 0:
		lines = append(lines, "Controller detected on the bus")
	case prev != nil && prev.Rate > 0 && cur.Rate == 0:
		lines = append(lines, "Bus silent")
	}

	if prev != nil && prev.Braking != cur.Braking {
		if cur.Braking {
			lines = append(lines, "Braking")
		} else {
			lines = append(lines, "Brake released")
		}
	}

	return lines
}
