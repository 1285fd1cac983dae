package display

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/hd44780"
)

// OpenLCD wires an HD44780 in 4-bit GPIO mode from named pins.
func OpenLCD(dataPins [4]string, rsPin, ePin string) (*hd44780.Dev, error) {
	data := make([]gpio.PinOut, len(dataPins))
	for i, name := range dataPins {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("lcd data pin %q not found", name)
		}
		data[i] = p
	}
	rs := gpioreg.ByName(rsPin)
	if rs == nil {
		return nil, fmt.Errorf("lcd rs pin %q not found", rsPin)
	}
	e := gpioreg.ByName(ePin)
	if e == nil {
		return nil, fmt.Errorf("lcd e pin %q not found", ePin)
	}

	dev, err := hd44780.New(data, rs, e)
	if err != nil {
		return nil, fmt.Errorf("hd44780 init: %w", err)
	}
	return dev, nil
}
