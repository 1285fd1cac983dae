// Package display cycles a two-line character LCD through status screens.
// Every screen is a pure projection of the shared node state; the rotator
// itself only owns which screen comes next.
package display

import (
	"fmt"
	"log/slog"

	"soilnode/internal/state"
)

// Device is the two-line character display the rotator writes to.
// Satisfied by periph.io's hd44780 driver.
type Device interface {
	SetCursor(line, column uint8) error
	Print(s string) error
}

// Discard stands in when the LCD failed to initialize; the node keeps
// sampling without a display.
type Discard struct{}

func (Discard) SetCursor(uint8, uint8) error { return nil }
func (Discard) Print(string) error           { return nil }

// Screen identifies one of the fixed rotation screens.
type Screen int

const (
	ScreenClimate Screen = iota // soil temperature + humidity
	ScreenChemistry             // pH + conductivity
	ScreenNitrogen
	ScreenPhosphorus
	ScreenPotassium
	ScreenCrop
	ScreenFertility
	ScreenLink

	screenCount
)

type Rotator struct {
	dev    Device
	cols   int
	next   Screen
	logger *slog.Logger
}

func NewRotator(dev Device, cols int, logger *slog.Logger) *Rotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rotator{dev: dev, cols: cols, logger: logger}
}

// Refresh renders the pending screen from the current state and advances
// the rotation by one, wrapping after the last screen.
func (r *Rotator) Refresh(n *state.Node) {
	top, bottom := render(r.next, n)
	r.show(0, top)
	r.show(1, bottom)
	r.next = (r.next + 1) % screenCount
}

// show writes one full-width line; padding clears the previous screen's
// leftovers without a display clear (which would flicker).
func (r *Rotator) show(line uint8, text string) {
	if err := r.dev.SetCursor(line, 0); err != nil {
		r.logger.Warn("lcd cursor failed", "error", err)
		return
	}
	if err := r.dev.Print(pad(text, r.cols)); err != nil {
		r.logger.Warn("lcd write failed", "error", err)
	}
}

// pad truncates or right-pads text to exactly width columns.
func pad(text string, width int) string {
	if len(text) > width {
		return text[:width]
	}
	return fmt.Sprintf("%-*s", width, text)
}

// render maps a screen to its two lines. Pure: no I/O, no state writes.
func render(s Screen, n *state.Node) (top, bottom string) {
	sample, pred := n.Sample, n.Prediction
	switch s {
	case ScreenClimate:
		return "Soil temp/hum", fmt.Sprintf("%.1fC  %.1f%%", tenths(sample.Temperature), tenths(sample.Humidity))
	case ScreenChemistry:
		return "Soil pH/EC", fmt.Sprintf("pH%.1f %duS/cm", tenths(sample.PH), sample.Conductivity)
	case ScreenNitrogen:
		return "Nitrogen (N)", fmt.Sprintf("%d mg/kg", sample.Nitrogen)
	case ScreenPhosphorus:
		return "Phosphorus (P)", fmt.Sprintf("%d mg/kg", sample.Phosphorus)
	case ScreenPotassium:
		return "Potassium (K)", fmt.Sprintf("%d mg/kg", sample.Potassium)
	case ScreenCrop:
		if pred.CropKnown() {
			return "Crop", fmt.Sprintf("%s %.0f%%", pred.Crop, pred.CropConfidence)
		}
		return "Crop", pred.Crop
	case ScreenFertility:
		if pred.FertilityKnown() {
			return "Fertility", fmt.Sprintf("%s %.0f%%", pred.Fertility, pred.FertilityConfidence)
		}
		return "Fertility", pred.Fertility
	case ScreenLink:
		if n.Link.Up {
			return "WiFi: online", n.Link.Addr
		}
		return "WiFi: offline", "waiting for link"
	}
	return "", ""
}

func tenths(v uint16) float64 {
	return float64(v) / 10
}
