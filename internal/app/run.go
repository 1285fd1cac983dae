// Package app runs the node's control loop: a single-threaded cycle of
// link check, probe read, classification and remote reporting, with the
// display rotating on its own shorter cadence.
package app

import (
	"context"
	"log/slog"
	"time"

	"periph.io/x/host/v3"

	"soilnode/internal/config"
	"soilnode/internal/display"
	"soilnode/internal/netlink"
	"soilnode/internal/predict"
	"soilnode/internal/soilprobe"
	"soilnode/internal/state"
	"soilnode/internal/telemetry"
)

// Collaborator surfaces, sized for the loop; satisfied by the real
// components and by test fakes.
type (
	sensor interface {
		Read() state.SoilSample
	}
	reporter interface {
		Report(ctx context.Context, sample state.SoilSample, prev state.Prediction) (state.Prediction, error)
	}
	linkManager interface {
		CheckAndReconnect()
	}
	refresher interface {
		Refresh(n *state.Node)
	}
	publisher interface {
		Publish(n *state.Node) error
	}
)

// Node owns the shared state and drives the components. The loop is the
// only writer of Sample and Prediction; the link manager is the only
// writer of Link.
type Node struct {
	st      *state.Node
	link    linkManager
	probe   sensor
	client  reporter
	rotator refresher
	mirror  publisher // nil when the telemetry mirror is unconfigured

	sampleEvery  time.Duration
	displayEvery time.Duration
}

// Run wires the real hardware and services and loops until ctx is done.
// A probe bus or LCD that fails to initialize is logged and replaced with
// an inert stand-in; the rest of the node still runs.
func Run(ctx context.Context, cfg config.Config) error {
	if _, err := host.Init(); err != nil {
		slog.Error("gpio host init failed", "error", err)
	}

	var bus soilprobe.Bus
	rs485, err := soilprobe.OpenRS485(cfg.SerialDevice, cfg.SerialBaud, cfg.BusDirPin, cfg.BusReadWindow)
	if err != nil {
		slog.Error("probe bus unavailable", "device", cfg.SerialDevice, "error", err)
		bus = soilprobe.Disconnected{Err: err}
	} else {
		defer rs485.Close()
		bus = rs485
	}

	var dev display.Device
	lcd, err := display.OpenLCD(cfg.LCDDataPins, cfg.LCDRSPin, cfg.LCDEPin)
	if err != nil {
		slog.Error("lcd unavailable", "error", err)
		dev = display.Discard{}
	} else {
		dev = lcd
	}

	st := state.New()
	link := netlink.New(
		&netlink.NMCLIRadio{Iface: cfg.WifiIface, SSID: cfg.WifiSSID, PSK: cfg.WifiPSK},
		netlink.Config{
			JoinAttempts:      cfg.JoinAttempts,
			JoinWait:          cfg.JoinWait,
			ReconnectAttempts: cfg.ReconnectAttempts,
			ReconnectWait:     cfg.ReconnectWait,
		},
		&st.Link,
		slog.Default(),
	)
	client := predict.New(cfg.PredictHost, cfg.PredictPort, cfg.PredictTimeout)

	n := &Node{
		st:           st,
		link:         link,
		probe:        soilprobe.New(bus, cfg.BusSettle, slog.Default()),
		client:       client,
		rotator:      display.NewRotator(dev, cfg.LCDCols, slog.Default()),
		sampleEvery:  cfg.SampleInterval,
		displayEvery: cfg.DisplayInterval,
	}

	if cfg.MQTTBroker != "" {
		mirror := telemetry.New(cfg.MQTTBroker, cfg.MQTTPort, cfg.MQTTClientID, cfg.StationID, slog.Default())
		defer mirror.Close()
		n.mirror = mirror
	}

	if !link.Join() {
		slog.Warn("starting with the link down")
	}
	if err := client.Ping(ctx); err != nil {
		slog.Warn("prediction service not reachable", "error", err)
	} else {
		slog.Info("prediction service healthy")
	}

	return n.run(ctx)
}

// run interleaves sampling cycles and display refreshes at whole-iteration
// granularity. Both deadlines are free-running: each resets to now+period
// when it fires, so a slow cycle shifts the next one rather than piling up.
func (n *Node) run(ctx context.Context) error {
	nextSample := time.Now()
	nextDisplay := time.Now()

	for {
		if !time.Now().Before(nextSample) {
			n.cycle(ctx)
			nextSample = time.Now().Add(n.sampleEvery)
		}
		if !time.Now().Before(nextDisplay) {
			n.rotator.Refresh(n.st)
			nextDisplay = time.Now().Add(n.displayEvery)
		}

		idle := time.Until(nextDisplay)
		if d := time.Until(nextSample); d < idle {
			idle = d
		}
		if idle < 0 {
			idle = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idle):
		}
	}
}

// cycle is one sampling pass: link check, probe read, classify, report.
// Every failure is absorbed here; the loop never stops.
func (n *Node) cycle(ctx context.Context) {
	n.link.CheckAndReconnect()

	sample := n.probe.Read()
	n.st.Sample = sample

	switch {
	case sample.NoNPK():
		// All-zero NPK means no NPK probe attached (a failed bus read
		// lands here too); nothing worth classifying remotely.
		n.st.Prediction = state.Prediction{Crop: state.LabelNoNPK, Fertility: state.LabelNoNPK}
		slog.Info("no NPK readings, report skipped")
	case !n.st.Link.Up:
		slog.Info("link down, sample not reported")
	default:
		pred, err := n.client.Report(ctx, sample, n.st.Prediction)
		if err != nil {
			slog.Warn("report failed", "error", err)
		} else {
			n.st.Prediction = pred
			slog.Info("sample reported",
				"crop", pred.Crop,
				"crop_confidence", pred.CropConfidence,
				"fertility", pred.Fertility,
			)
		}
	}

	if n.mirror != nil {
		if err := n.mirror.Publish(n.st); err != nil {
			slog.Warn("telemetry mirror publish failed", "error", err)
		}
	}
}
