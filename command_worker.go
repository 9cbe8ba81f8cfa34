package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
)

// commandTopics are the MQTT topics the simulator accepts set-points on
var commandTopics = []string{TopicVoltageSet, TopicCurrentSet}

// applyCommand applies one MQTT set-point command to the model
func applyCommand(sim *Simulator, cmd CommandMessage) error {
	v, err := strconv.ParseFloat(cmd.Value, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid value %q", cmd.Topic, cmd.Value)
	}

	switch cmd.Topic {
	case TopicVoltageSet:
		return sim.SBox.SetVoltage(v)
	case TopicCurrentSet:
		return sim.SBox.SetCurrent(v)
	default:
		return fmt.Errorf("unexpected command topic %s", cmd.Topic)
	}
}

// commandWorker applies set-points received over MQTT
func commandWorker(ctx context.Context, cmdChan <-chan CommandMessage, sim *Simulator) {
	for {
		select {
		case cmd := <-cmdChan:
			if err := applyCommand(sim, cmd); err != nil {
				log.Printf("MQTT command rejected: %v\n", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
