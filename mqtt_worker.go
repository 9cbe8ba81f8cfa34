package main

import (
	"context"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandMessage is a set-point command received over MQTT
type CommandMessage struct {
	Topic string
	Value string
}

// mqttWorker manages the MQTT connection and forwards command messages to a channel
func mqttWorker(
	ctx context.Context,
	cfg MQTTConfig,
	topics []string,
	cmdChan chan<- CommandMessage,
	clientChan chan<- mqtt.Client,
) {
	broker := cfg.BrokerURL()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetWill(TopicAvailability, PayloadOffline, 1, true)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v\n", err)
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker at %s\n", broker)

		client.Publish(TopicAvailability, 1, true, PayloadOnline)

		// Send the new client to the sender worker
		select {
		case clientChan <- client:
		case <-ctx.Done():
			return
		}

		for _, topic := range topics {
			token := client.Subscribe(topic, 0, func(client mqtt.Client, msg mqtt.Message) {
				cmd := CommandMessage{
					Topic: msg.Topic(),
					Value: strings.TrimSpace(string(msg.Payload())),
				}
				select {
				case cmdChan <- cmd:
				case <-ctx.Done():
					return
				}
			})

			if token.Wait() && token.Error() != nil {
				log.Printf("Failed to subscribe to topic %s: %v\n", topic, token.Error())
			} else {
				log.Printf("Subscribed to topic: %s\n", topic)
			}
		}
	})

	client := mqtt.NewClient(opts)

	log.Printf("Connecting to MQTT broker at %s...\n", broker)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("Failed to connect to MQTT broker: %v\n", token.Error())
		return
	}

	<-ctx.Done()

	if client.IsConnected() {
		client.Publish(TopicAvailability, 1, true, PayloadOffline).WaitTimeout(time.Second)
		client.Disconnect(250)
		log.Println("Disconnected from MQTT broker")
	}
}
