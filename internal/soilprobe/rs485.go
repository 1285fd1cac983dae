package soilprobe

import (
	"fmt"
	"time"

	"go.bug.st/serial"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// RS485 is the probe bus: a serial adapter plus a GPIO driving the
// transceiver's DE/RE pair (high = transmit, low = receive).
type RS485 struct {
	port serial.Port
	dir  gpio.PinOut
}

// OpenRS485 opens the serial device and claims the direction pin, leaving
// the line in receive. window bounds each read while draining a reply.
func OpenRS485(device string, baud int, dirPin string, window time.Duration) (*RS485, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := port.SetReadTimeout(window); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	pin := gpioreg.ByName(dirPin)
	if pin == nil {
		port.Close()
		return nil, fmt.Errorf("direction pin %q not found", dirPin)
	}
	if err := pin.Out(gpio.Low); err != nil {
		port.Close()
		return nil, fmt.Errorf("direction pin %s: %w", dirPin, err)
	}

	return &RS485{port: port, dir: pin}, nil
}

func (b *RS485) Transmit(frame []byte) error {
	// Stale bytes from a previous exchange would shift the register
	// offsets of this reply.
	if err := b.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input: %w", err)
	}

	if err := b.dir.Out(gpio.High); err != nil {
		return fmt.Errorf("direction to tx: %w", err)
	}
	_, werr := b.port.Write(frame)
	if werr == nil {
		// Hold TX until the last byte has left the UART.
		werr = b.port.Drain()
	}
	if err := b.dir.Out(gpio.Low); err != nil && werr == nil {
		werr = fmt.Errorf("direction to rx: %w", err)
	}
	if werr != nil {
		return fmt.Errorf("write query: %w", werr)
	}
	return nil
}

func (b *RS485) Receive(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := b.port.Read(buf[total:])
		if err != nil {
			return total, fmt.Errorf("read reply: %w", err)
		}
		if n == 0 { // read timeout: line went idle
			break
		}
		total += n
	}
	return total, nil
}

func (b *RS485) Close() error {
	return b.port.Close()
}
