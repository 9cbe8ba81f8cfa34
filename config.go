package main

import (
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ryansname/sbox-sim/sbox"
)

// Optional message groups that can be switched on with --groups
const (
	GroupIEB = "ieb"
	GroupSRS = "srs"
)

var knownGroups = []string{GroupIEB, GroupSRS}

// MQTTConfig holds the broker connection settings. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker   string
	Username string
	Password string
	ClientID string
}

// Config is the runtime configuration, read from the environment and then
// overridden by command line flags
type Config struct {
	Interface    string
	Virtual      bool
	NoUI         bool
	BringUp      bool
	LogDir       string
	MessagesFile string
	Groups       []string
	Voltage      float64
	MQTT         MQTTConfig
}

// configFromEnv builds the default configuration from environment variables
func configFromEnv() (Config, error) {
	cfg := Config{
		Interface:    envOr("SBOX_INTERFACE", "can0"),
		LogDir:       envOr("SBOX_LOG_DIR", "."),
		MessagesFile: os.Getenv("SBOX_MESSAGES_FILE"),
		Groups:       splitList(os.Getenv("SBOX_GROUPS")),
		Voltage:      sbox.DefaultVoltage,
		MQTT: MQTTConfig{
			Broker:   os.Getenv("MQTT_BROKER"),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			ClientID: envOr("MQTT_CLIENT_ID", "sbox-sim"),
		},
	}

	var err error
	if cfg.Virtual, err = envBool("SBOX_VIRTUAL"); err != nil {
		return cfg, err
	}
	if cfg.NoUI, err = envBool("SBOX_NO_UI"); err != nil {
		return cfg, err
	}
	if v := os.Getenv("SBOX_VOLTAGE"); v != "" {
		cfg.Voltage, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("SBOX_VOLTAGE: %w", err)
		}
	}
	return cfg, nil
}

// Validate checks values that flags and the environment can get wrong
func (c *Config) Validate() error {
	if !c.Virtual && c.Interface == "" {
		return fmt.Errorf("no CAN interface given (use --interface or --virtual)")
	}
	if math.IsNaN(c.Voltage) || c.Voltage < sbox.MinVoltage || c.Voltage > sbox.MaxVoltage {
		return fmt.Errorf("voltage %.1f V: %w (%.0f..%.0f)", c.Voltage, sbox.ErrOutOfRange, sbox.MinVoltage, sbox.MaxVoltage)
	}
	c.Groups = normaliseGroups(c.Groups)
	for _, g := range c.Groups {
		if !slices.Contains(knownGroups, g) {
			return fmt.Errorf("unknown message group %q (known: %s)", g, strings.Join(knownGroups, ", "))
		}
	}
	return nil
}

// HasGroup reports whether an optional message group is enabled
func (c *Config) HasGroup(name string) bool {
	return slices.Contains(c.Groups, name)
}

// BrokerURL returns the broker address in the form paho expects
func (m MQTTConfig) BrokerURL() string {
	if strings.Contains(m.Broker, "://") {
		return m.Broker
	}
	return fmt.Sprintf("tcp://%s:1883", m.Broker)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normaliseGroups lower-cases, splits comma lists and dedupes
func normaliseGroups(groups []string) []string {
	var out []string
	for _, g := range groups {
		for _, part := range splitList(strings.ToLower(g)) {
			if !slices.Contains(out, part) {
				out = append(out, part)
			}
		}
	}
	return out
}
