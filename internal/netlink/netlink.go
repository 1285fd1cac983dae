// Package netlink tracks the wireless uplink and nudges it back up when
// it drops. The OS wireless stack sits behind the Radio interface; this
// package only decides when to ask it for status or a reconnect.
package netlink

import (
	"log/slog"
	"time"

	"soilnode/internal/state"
)

// Radio is the narrow surface of the wireless stack the node relies on.
type Radio interface {
	// Status reports whether the link is associated and the assigned
	// address when it is.
	Status() (up bool, addr string, err error)
	// Connect asks for (re)association. It returns once the request is
	// issued; association completes in the background.
	Connect() error
}

// Config holds the bounded wait parameters. There is deliberately no
// backoff: the retry cadence is the sampling cycle.
type Config struct {
	JoinAttempts      int
	JoinWait          time.Duration
	ReconnectAttempts int
	ReconnectWait     time.Duration
}

// Manager is the single writer of the shared link state.
type Manager struct {
	radio  Radio
	cfg    Config
	link   *state.Link
	logger *slog.Logger

	sleep func(time.Duration) // swapped in tests
}

func New(radio Radio, cfg Config, link *state.Link, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{radio: radio, cfg: cfg, link: link, logger: logger, sleep: time.Sleep}
}

// Join brings the link up at startup: one connect request, then a bounded
// number of fixed-duration status polls. Returns whether the link came up.
func (m *Manager) Join() bool {
	if err := m.radio.Connect(); err != nil {
		m.logger.Warn("wifi connect request failed", "error", err)
	}
	for i := 0; i < m.cfg.JoinAttempts; i++ {
		m.sleep(m.cfg.JoinWait)
		if m.refresh() {
			m.logger.Info("wifi joined", "addr", m.link.Addr)
			return true
		}
	}
	m.logger.Warn("wifi join failed", "attempts", m.cfg.JoinAttempts)
	return false
}

// CheckAndReconnect runs once per sampling cycle. An up link or an
// already-down link gets a status check only; the up-to-down transition
// additionally issues one reconnect request and polls a bounded window
// for recovery.
func (m *Manager) CheckAndReconnect() {
	wasUp := m.link.Up
	if m.refresh() || !wasUp {
		return
	}

	m.logger.Warn("wifi link lost, reconnecting")
	if err := m.radio.Connect(); err != nil {
		m.logger.Warn("wifi reconnect request failed", "error", err)
		return
	}
	for i := 0; i < m.cfg.ReconnectAttempts; i++ {
		m.sleep(m.cfg.ReconnectWait)
		if m.refresh() {
			m.logger.Info("wifi link recovered", "addr", m.link.Addr)
			return
		}
	}
	m.logger.Warn("wifi still down", "attempts", m.cfg.ReconnectAttempts)
}

// refresh queries the radio and rewrites the shared link state.
func (m *Manager) refresh() bool {
	up, addr, err := m.radio.Status()
	if err != nil {
		m.logger.Warn("wifi status query failed", "error", err)
		up = false
	}
	if !up {
		addr = ""
	}
	m.link.Up = up
	m.link.Addr = addr
	return up
}
