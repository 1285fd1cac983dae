// Package soilprobe queries a 7-in-1 RS485 soil probe and decodes its
// fixed-layout reply into a state.SoilSample.
package soilprobe

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"soilnode/internal/state"
)

// queryFrame reads 7 holding registers starting at 0 from device 0x01.
// The trailing CRC is precomputed for this exact frame and never changes.
var queryFrame = []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x07, 0x04, 0x08}

// Reply layout: address, function, byte-count, then 7 big-endian uint16
// registers, then CRC. Anything shorter than the last register's end is
// discarded whole.
const (
	headerLen      = 3
	registerCount  = 7
	minResponseLen = headerLen + 2*registerCount // 17
)

// Bus is the half-duplex serial line to the probe. Transmit drives the
// direction control, writes one frame and returns the line to receive;
// Receive drains whatever reply bytes have arrived.
type Bus interface {
	Transmit(frame []byte) error
	Receive(buf []byte) (n int, err error)
}

// Disconnected is a Bus for a node whose serial adapter failed to open.
// Every exchange fails, so reads surface as all-zero samples.
type Disconnected struct{ Err error }

func (d Disconnected) Transmit([]byte) error       { return d.Err }
func (d Disconnected) Receive([]byte) (int, error) { return 0, d.Err }

// Probe performs one query/response exchange per Read.
type Probe struct {
	bus    Bus
	settle time.Duration
	logger *slog.Logger

	sleep func(time.Duration) // swapped in tests
}

func New(bus Bus, settle time.Duration, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{bus: bus, settle: settle, logger: logger, sleep: time.Sleep}
}

// Read queries the probe and returns the decoded sample. It never fails
// upward: any bus problem yields the all-zero sample and a log line.
func (p *Probe) Read() state.SoilSample {
	if err := p.bus.Transmit(queryFrame); err != nil {
		p.logger.Warn("probe query failed", "error", err)
		return state.SoilSample{}
	}

	// Give the probe time to turn the line around and answer.
	p.sleep(p.settle)

	buf := make([]byte, 64)
	n, err := p.bus.Receive(buf)
	if err != nil {
		p.logger.Warn("probe read failed", "error", err)
		return state.SoilSample{}
	}

	sample, err := decode(buf[:n])
	if err != nil {
		p.logger.Warn("probe reply discarded", "error", err)
		return state.SoilSample{}
	}
	return sample
}

func decode(resp []byte) (state.SoilSample, error) {
	if len(resp) < minResponseLen {
		return state.SoilSample{}, fmt.Errorf("short frame: %d bytes, need %d", len(resp), minResponseLen)
	}
	reg := func(i int) uint16 {
		off := headerLen + 2*i
		return binary.BigEndian.Uint16(resp[off : off+2])
	}
	return state.SoilSample{
		Humidity:     reg(0),
		Temperature:  reg(1),
		Conductivity: reg(2),
		PH:           reg(3),
		Nitrogen:     reg(4),
		Phosphorus:   reg(5),
		Potassium:    reg(6),
	}, nil
}
