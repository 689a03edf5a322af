//go:build rp2040

package main

import (
	"fmt"
	"machine"
	"sync"

	"gopherscope/core"
)

// adcPins maps GPIO numbers to the four external ADC inputs
var adcPins = map[core.PinID]machine.Pin{
	26: machine.ADC0,
	27: machine.ADC1,
	28: machine.ADC2,
	29: machine.ADC3,
}

// rpADC implements core.ADCDriver using TinyGo's machine.ADC
type rpADC struct {
	mu       sync.Mutex
	channels map[core.PinID]*machine.ADC
}

func newRPADC() *rpADC {
	machine.InitADC()
	return &rpADC{channels: make(map[core.PinID]*machine.ADC)}
}

func (d *rpADC) Capable() []core.PinID {
	return []core.PinID{26, 27, 28, 29}
}

func (d *rpADC) ConfigureChannel(id core.PinID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	pin, ok := adcPins[id]
	if !ok {
		return fmt.Errorf("gpio%d has no ADC input", id)
	}
	adc := machine.ADC{Pin: pin}
	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.channels[id] = &adc
	return nil
}

func (d *rpADC) ReleaseChannel(id core.PinID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pin, ok := adcPins[id]; ok {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	delete(d.channels, id)
	return nil
}

// ReadRaw returns the 12-bit conversion result (0-4095)
func (d *rpADC) ReadRaw(id core.PinID) (core.ADCValue, error) {
	adc, ok := d.channels[id]
	if !ok {
		return 0, fmt.Errorf("gpio%d not configured", id)
	}
	// machine.ADC scales readings to 16 bits
	return core.ADCValue(adc.Get() >> 4), nil
}
