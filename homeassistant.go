package main

import (
	"encoding/json"

	"github.com/ryansname/sbox-sim/sbox"
)

const haDeviceID = "sbox_sim"

type haDeviceConfig struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// haEntityConfig covers the discovery fields used by sensor, binary_sensor and number
type haEntityConfig struct {
	Name              string         `json:"name,omitempty"`
	DeviceClass       string         `json:"device_class,omitempty"`
	StateTopic        string         `json:"state_topic"`
	CommandTopic      string         `json:"command_topic,omitempty"`
	AvailabilityTopic string         `json:"availability_topic"`
	UnitOfMeasure     string         `json:"unit_of_measurement,omitempty"`
	ValueTemplate     string         `json:"value_template"`
	UniqueId          string         `json:"unique_id"`
	StateClass        string         `json:"state_class,omitempty"`
	DisplayPrecision  int            `json:"suggested_display_precision,omitempty"`
	PayloadOn         string         `json:"payload_on,omitempty"`
	PayloadOff        string         `json:"payload_off,omitempty"`
	Min               *float64       `json:"min,omitempty"`
	Max               *float64       `json:"max,omitempty"`
	Step              float64        `json:"step,omitempty"`
	Mode              string         `json:"mode,omitempty"`
	Device            haDeviceConfig `json:"device"`
}

func haDevice() haDeviceConfig {
	return haDeviceConfig{
		Identifiers:  []string{haDeviceID},
		Name:         "SBox Simulator",
		Manufacturer: "sbox-sim",
		Model:        "BMW SBox",
	}
}

func discoveryTopic(component, key string) string {
	return "homeassistant/" + component + "/" + haDeviceID + "_" + key + "/config"
}

func (s *MQTTSender) sendDiscovery(component, key string, config haEntityConfig) error {
	config.StateTopic = TopicState
	config.AvailabilityTopic = TopicAvailability
	config.UniqueId = haDeviceID + "_" + key
	config.Device = haDevice()

	payload, err := json.Marshal(config)
	if err != nil {
		return err
	}

	s.Send(MQTTMessage{
		Topic:   discoveryTopic(component, key),
		Payload: payload,
		QoS:     2,
		Retain:  true,
	})
	return nil
}

// CreateSensor creates a numeric sensor reading jsonKey from the state document
func (s *MQTTSender) CreateSensor(name, deviceClass, unit, jsonKey string, displayPrecision int) error {
	return s.sendDiscovery("sensor", jsonKey, haEntityConfig{
		Name:             name,
		DeviceClass:      deviceClass,
		UnitOfMeasure:    unit,
		ValueTemplate:    "{{ value_json." + jsonKey + " }}",
		StateClass:       "measurement",
		DisplayPrecision: displayPrecision,
	})
}

// CreateBinarySensor creates an on/off sensor from a boolean in the state document
func (s *MQTTSender) CreateBinarySensor(name, deviceClass, jsonKey string) error {
	return s.sendDiscovery("binary_sensor", jsonKey, haEntityConfig{
		Name:          name,
		DeviceClass:   deviceClass,
		ValueTemplate: "{{ 'ON' if value_json." + jsonKey + " else 'OFF' }}",
		PayloadOn:     "ON",
		PayloadOff:    "OFF",
	})
}

// CreateNumber creates a settable number entity backed by a command topic
func (s *MQTTSender) CreateNumber(name, deviceClass, unit, jsonKey, commandTopic string, minValue, maxValue, step float64) error {
	return s.sendDiscovery("number", jsonKey+"_setpoint", haEntityConfig{
		Name:          name,
		DeviceClass:   deviceClass,
		UnitOfMeasure: unit,
		ValueTemplate: "{{ value_json." + jsonKey + " }}",
		CommandTopic:  commandTopic,
		Min:           &minValue,
		Max:           &maxValue,
		Step:          step,
		Mode:          "box",
	})
}

// CreateEntities announces every simulator entity to Home Assistant
func (s *MQTTSender) CreateEntities() error {
	sensors := []struct {
		name, class, unit, key string
		precision              int
	}{
		{"Pack Voltage", "voltage", "V", "voltage", 1},
		{"Current", "current", "A", "current", 1},
		{"Output Voltage", "voltage", "V", "output_voltage", 1},
		{"RX Rate", "", "msg/s", "rx_rate", 0},
	}
	for _, e := range sensors {
		if err := s.CreateSensor(e.name, e.class, e.unit, e.key, e.precision); err != nil {
			return err
		}
	}

	binarySensors := []struct{ name, class, key string }{
		{"Contactor Setup", "", "setup"},
		{"Positive Contactor", "power", "positive"},
		{"Negative Contactor", "power", "negative"},
		{"Pre-charge Contactor", "power", "precharge"},
		{"Pre-charging", "running", "precharging"},
		{"Braking", "", "braking"},
	}
	for _, e := range binarySensors {
		if err := s.CreateBinarySensor(e.name, e.class, e.key); err != nil {
			return err
		}
	}

	if err := s.CreateNumber("Pack Voltage Set-point", "voltage", "V", "voltage", TopicVoltageSet,
		sbox.MinVoltage, sbox.MaxVoltage, 0.1); err != nil {
		return err
	}
	return s.CreateNumber("Current Set-point", "current", "A", "current", TopicCurrentSet,
		sbox.MinCurrent, sbox.MaxCurrent, 0.1)
}
