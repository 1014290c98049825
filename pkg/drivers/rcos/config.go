package rcos

import "tcc/pkg/tcc"

// MQTTConfig configures the optional telemetry publisher.
type MQTTConfig struct {
	Host      string
	Username  string
	Password  string
	TopicRoot string
}

// Config is the driver's persisted configuration.
type Config struct {
	// Port is the serial port name, or SimulatorPort for the built-in
	// simulator.
	Port string

	// Move command formats. The TCC's absolute-move verbs are not
	// confirmed against real firmware, so they stay configurable.
	FocuserMoveFormat string
	RotatorMoveFormat string

	// Focuser travel limits reported to Alpaca clients.
	MaxStep      int
	MaxIncrement int

	// PublishSeconds is the MQTT telemetry interval. Publishing is
	// enabled when MQTT.Host is set.
	PublishSeconds int

	MQTT MQTTConfig
}

var defaultConfig = Config{
	Port:              SimulatorPort,
	FocuserMoveFormat: tcc.DefaultFocuserMoveFormat,
	RotatorMoveFormat: tcc.DefaultRotatorMoveFormat,
	MaxStep:           100000,
	MaxIncrement:      100000,
	PublishSeconds:    5,
	MQTT: MQTTConfig{
		TopicRoot: "tcc",
	},
}
