//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts for the duration of a burst capture so
// no handler runs between ticks. The hardware timer keeps counting.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
