//go:build rp2040

package main

import (
	"context"
	"runtime/volatile"
	"time"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// sleepSlice bounds how long Sleep goes without checking its context
const sleepSlice = time.Millisecond

// hwClock is a core.Clock on the 1 MHz hardware timer
type hwClock struct{}

// uptime reads the full 64-bit microsecond counter
func uptime() uint64 {
	// High, low, high again to detect rollover
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

func (hwClock) Now() time.Duration {
	return time.Duration(uptime()) * time.Microsecond
}

func (c hwClock) Sleep(ctx context.Context, d time.Duration) error {
	deadline := c.Now() + d
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		left := deadline - c.Now()
		if left <= 0 {
			return nil
		}
		time.Sleep(min(left, sleepSlice))
	}
}
