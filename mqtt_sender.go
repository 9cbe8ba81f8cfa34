package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT topics owned by the simulator
const (
	TopicState        = "sbox-sim/state"
	TopicAvailability = "sbox-sim/availability"
	TopicVoltageSet   = "sbox-sim/voltage/set"
	TopicCurrentSet   = "sbox-sim/current/set"

	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// statePublishInterval limits how often state is published
const statePublishInterval = time.Second

// MQTTMessage represents an outgoing MQTT message
type MQTTMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// MQTTSender wraps a channel for sending MQTT messages with helper methods
type MQTTSender struct {
	ch chan<- MQTTMessage
}

// NewMQTTSender creates a new MQTTSender wrapping the given channel
func NewMQTTSender(ch chan<- MQTTMessage) *MQTTSender {
	return &MQTTSender{ch: ch}
}

// Send sends a raw MQTTMessage
func (s *MQTTSender) Send(msg MQTTMessage) {
	s.ch <- msg
}

// statePayload is the JSON document published on TopicState
type statePayload struct {
	Voltage       float64 `json:"voltage"`
	Current       float64 `json:"current"`
	OutputVoltage float64 `json:"output_voltage"`
	Setup         bool    `json:"setup"`
	Positive      bool    `json:"positive"`
	Negative      bool    `json:"negative"`
	Precharge     bool    `json:"precharge"`
	Precharging   bool    `json:"precharging"`
	RxRate        int     `json:"rx_rate"`
	Braking       bool    `json:"braking"`
}

func newStatePayload(data StatusData) statePayload {
	s := data.SBox
	return statePayload{
		Voltage:       s.Voltage,
		Current:       s.Current,
		OutputVoltage: s.OutputVoltage,
		Setup:         s.Setup,
		Positive:      s.Contactors.Positive,
		Negative:      s.Contactors.Negative,
		Precharge:     s.Contactors.Precharge,
		Precharging:   s.Precharging,
		RxRate:        data.Rate,
		Braking:       data.Braking,
	}
}

// PublishState sends the current state document
func (s *MQTTSender) PublishState(data StatusData) error {
	payload, err := json.Marshal(newStatePayload(data))
	if err != nil {
		return err
	}
	s.Send(MQTTMessage{
		Topic:   TopicState,
		Payload: payload,
		QoS:     0,
		Retain:  false,
	})
	return nil
}

// mqttStateWorker publishes StatusData at most once per statePublishInterval
func mqttStateWorker(ctx context.Context, dataChan <-chan StatusData, sender *MQTTSender) {
	var lastPublish time.Time
	for {
		select {
		case data := <-dataChan:
			if data.Time.Sub(lastPublish) < statePublishInterval {
				continue
			}
			if err := sender.PublishState(data); err != nil {
				log.Printf("Failed to encode state: %v\n", err)
				continue
			}
			lastPublish = data.Time
		case <-ctx.Done():
			return
		}
	}
}

// enqueue adds msg to the queue, replacing an older message for the same
// topic so a long disconnect only keeps the latest of each
func enqueue(queue []MQTTMessage, msg MQTTMessage) []MQTTMessage {
	for i := range queue {
		if queue[i].Topic == msg.Topic {
			queue[i] = msg
			return queue
		}
	}
	return append(queue, msg)
}

func publish(client mqtt.Client, msg MQTTMessage) {
	token := client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("Failed to publish to %s: %v\n", msg.Topic, token.Error())
	}
}

// mqttSenderWorker handles outgoing MQTT messages, queuing them until a client is connected
func mqttSenderWorker(
	ctx context.Context,
	outgoingChan <-chan MQTTMessage,
	clientChan <-chan mqtt.Client,
) {
	log.Println("MQTT sender worker started")

	var client mqtt.Client
	var messageQueue []MQTTMessage

	for {
		select {
		case newClient := <-clientChan:
			client = newClient

			if client != nil && client.IsConnected() {
				queuedCount := len(messageQueue)
				for _, msg := range messageQueue {
					publish(client, msg)
				}
				messageQueue = nil
				if queuedCount > 0 {
					log.Printf("MQTT sender worker processed %d queued messages\n", queuedCount)
				}
			}

		case msg := <-outgoingChan:
			if client != nil && client.IsConnected() {
				publish(client, msg)
			} else {
				messageQueue = enqueue(messageQueue, msg)
			}

		case <-ctx.Done():
			log.Println("MQTT sender worker stopped")
			return
		}
	}
}
