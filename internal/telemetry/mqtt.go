// Package telemetry mirrors each sampling cycle to an MQTT broker.
// Optional: the node's reporting path never depends on it.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"soilnode/internal/state"
)

const publishWait = 2 * time.Second

// Reading is the published payload: the raw sample in physical units plus
// the current classification.
type Reading struct {
	StationID    string    `json:"station_id"`
	Timestamp    time.Time `json:"timestamp"`
	HumidityPct  float64   `json:"humidity_pct"`
	TemperatureC float64   `json:"temperature_c"`
	Conductivity uint16    `json:"conductivity_us_cm"`
	PH           float64   `json:"ph"`
	Nitrogen     uint16    `json:"nitrogen_mg_kg"`
	Phosphorus   uint16    `json:"phosphorus_mg_kg"`
	Potassium    uint16    `json:"potassium_mg_kg"`
	Crop         string    `json:"crop,omitempty"`
	Fertility    string    `json:"fertility,omitempty"`
	LinkUp       bool      `json:"link_up"`
}

type Publisher struct {
	client  mqtt.Client
	topic   string
	station string
	logger  *slog.Logger
}

// New builds a publisher with paho's own retry/reconnect machinery; the
// initial connect happens in the background so startup never blocks on
// the broker.
func New(broker string, port int, clientID, station string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "broker", broker, "port", port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	p := &Publisher{
		client:  mqtt.NewClient(opts),
		topic:   fmt.Sprintf("soilnode/%s/telemetry", station),
		station: station,
		logger:  logger,
	}
	p.client.Connect()
	return p
}

// Publish mirrors one cycle. Skipped while the broker is unreachable;
// the wait is bounded so a slow broker cannot stall the sampling loop.
func (p *Publisher) Publish(n *state.Node) error {
	if !p.client.IsConnected() {
		return nil
	}

	reading := Reading{
		StationID:    p.station,
		Timestamp:    time.Now(),
		HumidityPct:  float64(n.Sample.Humidity) / 10,
		TemperatureC: float64(n.Sample.Temperature) / 10,
		Conductivity: n.Sample.Conductivity,
		PH:           float64(n.Sample.PH) / 10,
		Nitrogen:     n.Sample.Nitrogen,
		Phosphorus:   n.Sample.Phosphorus,
		Potassium:    n.Sample.Potassium,
		LinkUp:       n.Link.Up,
	}
	if n.Prediction.CropKnown() {
		reading.Crop = n.Prediction.Crop
	}
	if n.Prediction.FertilityKnown() {
		reading.Fertility = n.Prediction.Fertility
	}

	data, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, data)
	if !token.WaitTimeout(publishWait) {
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish reading: %w", token.Error())
	}

	p.logger.Debug("published reading", "topic", p.topic)
	return nil
}

// Close disconnects from the broker; safe when never connected.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
