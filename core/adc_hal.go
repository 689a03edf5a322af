package core

// PinID identifies a physical pin by its board number
type PinID = uint8

// ADCValue is the raw ADC reading as seen by the rest of the firmware.
// Hardware resolution is preserved; no scaling is applied.
type ADCValue uint16

// ADCDriver is the abstract ADC interface that core code uses.
// Platform-specific implementations handle the peripheral.
type ADCDriver interface {
	// Capable lists every pin that can be routed to the ADC. The list is
	// fixed for the lifetime of the driver.
	Capable() []PinID

	// ConfigureChannel switches a pin to analog input
	ConfigureChannel(pin PinID) error

	// ReleaseChannel returns a pin to its disconnected state
	ReleaseChannel(pin PinID) error

	// ReadRaw performs a one-shot conversion on a configured pin
	ReadRaw(pin PinID) (ADCValue, error)
}

// Abilities describes what the board's sampler can do
type Abilities struct {
	ADCPins     []PinID  `json:"adc_pins"`
	Resolutions []uint8  `json:"adc_resolutions"`
	References  []string `json:"adc_references"`
	MaxRateHz   uint32   `json:"max_rate_hz"`
}

// Supports reports whether pin is in the ADC catalog
func (a Abilities) Supports(pin PinID) bool {
	for _, p := range a.ADCPins {
		if p == pin {
			return true
		}
	}
	return false
}
