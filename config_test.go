package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryansname/sbox-sim/sbox"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"SBOX_INTERFACE", "SBOX_VIRTUAL", "SBOX_NO_UI", "SBOX_LOG_DIR",
		"SBOX_MESSAGES_FILE", "SBOX_GROUPS", "SBOX_VOLTAGE", "MQTT_BROKER", "MQTT_CLIENT_ID"} {
		t.Setenv(k, "")
	}

	cfg, err := configFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "can0", cfg.Interface)
	assert.Equal(t, ".", cfg.LogDir)
	assert.False(t, cfg.Virtual)
	assert.False(t, cfg.NoUI)
	assert.Empty(t, cfg.Groups)
	assert.Equal(t, sbox.DefaultVoltage, cfg.Voltage)
	assert.Equal(t, "sbox-sim", cfg.MQTT.ClientID)
	assert.Empty(t, cfg.MQTT.Broker)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("SBOX_INTERFACE", "vcan0")
	t.Setenv("SBOX_VIRTUAL", "true")
	t.Setenv("SBOX_NO_UI", "1")
	t.Setenv("SBOX_GROUPS", "ieb, srs")
	t.Setenv("SBOX_VOLTAGE", "400.5")
	t.Setenv("MQTT_BROKER", "broker.lan")

	cfg, err := configFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "vcan0", cfg.Interface)
	assert.True(t, cfg.Virtual)
	assert.True(t, cfg.NoUI)
	assert.Equal(t, []string{"ieb", "srs"}, cfg.Groups)
	assert.Equal(t, 400.5, cfg.Voltage)
	assert.Equal(t, "broker.lan", cfg.MQTT.Broker)
}

func TestConfigFromEnv_BadValues(t *testing.T) {
	t.Setenv("SBOX_VIRTUAL", "maybe")
	_, err := configFromEnv()
	assert.ErrorContains(t, err, "SBOX_VIRTUAL")

	t.Setenv("SBOX_VIRTUAL", "")
	t.Setenv("SBOX_VOLTAGE", "lots")
	_, err = configFromEnv()
	assert.ErrorContains(t, err, "SBOX_VOLTAGE")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Interface: "can0", Voltage: 350}

	cfg := valid
	cfg.Groups = []string{"IEB,srs", "ieb"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"ieb", "srs"}, cfg.Groups)
	assert.True(t, cfg.HasGroup(GroupIEB))

	cfg = valid
	cfg.Groups = []string{"abs"}
	assert.ErrorContains(t, cfg.Validate(), `unknown message group "abs"`)

	cfg = valid
	cfg.Voltage = 600
	assert.ErrorIs(t, cfg.Validate(), sbox.ErrOutOfRange)

	cfg = valid
	cfg.Voltage = math.NaN()
	assert.ErrorIs(t, cfg.Validate(), sbox.ErrOutOfRange)

	cfg = valid
	cfg.Interface = ""
	assert.Error(t, cfg.Validate())
	cfg.Virtual = true
	assert.NoError(t, cfg.Validate())
}

func TestMQTTConfig_BrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://homeassistant.lan:1883", MQTTConfig{Broker: "homeassistant.lan"}.BrokerURL())
	assert.Equal(t, "ssl://broker:8883", MQTTConfig{Broker: "ssl://broker:8883"}.BrokerURL())
}
