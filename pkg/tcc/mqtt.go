package tcc

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// telemetryMsg is the JSON payload published under the "telemetry"
// topic for observers that watch the instrument over MQTT.
type telemetryMsg struct {
	FocuserSet    int     `json:"foc_set"`
	FocuserActual int     `json:"foc_pos"`
	FocuserMoving int     `json:"foc_moving"`
	RotatorSet    float64 `json:"rot_set"`
	RotatorActual float64 `json:"rot_pos"`
	RotatorMoving int     `json:"rot_moving"`
	AmbientF      float64 `json:"t_ambient"`
	PrimaryF      float64 `json:"t_primary"`
	SecondaryF    float64 `json:"t_secondary"`
	ElectronicsF  float64 `json:"t_electronics"`
	FanMode       int     `json:"fan_mode"`
	FanSpeed      int     `json:"fan_speed"`
	HeaterMode    int     `json:"heater_mode"`
	HeaterPower   int     `json:"heater_power"`
	Dew1          int     `json:"dew1"`
	Dew2          int     `json:"dew2"`
	PingOK        int     `json:"ping_ok"`
	Firmware      string  `json:"fw"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Publisher periodically publishes state snapshots to an MQTT topic.
type Publisher struct {
	client   mqtt.Client
	src      *Client
	topic    string
	interval time.Duration
	logger   log.FieldLogger
}

func NewPublisher(client mqtt.Client, src *Client, topicRoot string, interval time.Duration, logger log.FieldLogger) *Publisher {
	return &Publisher{
		client:   client,
		src:      src,
		topic:    topicRoot + "/telemetry",
		interval: interval,
		logger:   logger.WithField("component", "publisher"),
	}
}

// Run publishes until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publish()
		}
	}
}

func (p *Publisher) publish() {
	if !p.client.IsConnected() {
		return
	}

	snap := p.src.Snapshot()
	msg := telemetryMsg{
		FocuserSet:    snap.Focuser.SetPosition,
		FocuserActual: snap.Focuser.ActualPosition,
		FocuserMoving: boolToInt(snap.Focuser.Moving),
		RotatorSet:    snap.Rotator.SetPosition,
		RotatorActual: snap.Rotator.ActualPosition,
		RotatorMoving: boolToInt(snap.Rotator.Moving),
		AmbientF:      snap.Temperature.AmbientF,
		PrimaryF:      snap.Temperature.PrimaryF,
		SecondaryF:    snap.Temperature.SecondaryF,
		ElectronicsF:  snap.Temperature.ElectronicsF,
		FanMode:       snap.Fan.Mode,
		FanSpeed:      snap.Fan.Speed,
		HeaterMode:    snap.Heater.Mode,
		HeaterPower:   snap.Heater.Power,
		Dew1:          snap.Dew.Power1,
		Dew2:          snap.Dew.Power2,
		PingOK:        boolToInt(snap.PingOK),
		Firmware:      snap.Firmware,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Errorf("Failed to marshal telemetry: %v", err)
		return
	}

	if token := p.client.Publish(p.topic, 0, false, payload); token.Wait() && token.Error() != nil {
		p.logger.Errorf("Failed to publish telemetry: %v", token.Error())
	}
}
