//go:build rp2040

// Firmware for RP2040 boards: the scope protocol runs on UART0 (GP0 TX,
// GP1 RX) at 9600 baud and JSON log lines go to the USB serial port.
package main

import (
	"context"
	"machine"
	"time"

	"github.com/rs/zerolog"

	"gopherscope/core"
)

const baudRate = 9600

// restartDelay separates a failed device run from the next one
const restartDelay = time.Second

var abilities = core.Abilities{
	ADCPins:     []core.PinID{26, 27, 28, 29},
	Resolutions: []uint8{12},
	References:  []string{"VDD (3.3 V)"},
	MaxRateHz:   core.MaxRateHz,
}

func main() {
	// Clear any watchdog state left from before the reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: baudRate,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	log := zerolog.New(machine.Serial).With().Str("board", "rp2040").Logger()
	adc := newRPADC()

	for {
		run(log, adc, serialStream{port: uart})
		time.Sleep(restartDelay)
	}
}

// run serves the host until the device stops. A panic is logged and
// turned into a restart.
func run(log zerolog.Logger, adc *rpADC, link serialStream) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("device crashed")
		}
	}()

	dev, err := core.New(core.Config{
		ADC:       adc,
		Transport: link,
		Clock:     hwClock{},
		Abilities: abilities,
		Logger:    &log,
	})
	if err != nil {
		log.Error().Err(err).Msg("device setup failed")
		return
	}
	if err := dev.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("device stopped")
	}
}
