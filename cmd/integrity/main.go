//go:build rp2040 || rp2350

// cmd/integrity/main.go
// Exacting cross-channel integrity test for one WK2132 on an RP2040/RP2350.
// Wiring:
//   WK2132 on I2C0 (SDA=GP4, SCL=GP5), A1/A0 straps high
//   CH0 TX -> CH1 RX
//   CH1 TX -> CH0 RX

package main

import (
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-wk2132/wk2132"
)

/*** Tunables ***/
const (
	baud           = 57600 // channel baud; both directions must fit in the I2C budget
	i2cSpeed       = 400 * machine.KHz
	totalBytes     = 16 * 1024 // bytes per direction
	fullDuplex     = true      // true: duplex test; false: run each direction separately
	timeoutPerTest = 20 * time.Second
	warmupDelay    = 2 * time.Second
)

/*** Main ***/
func main() {
	time.Sleep(warmupDelay)
	println("wk2132 integrity test")
	println("baud =", baud, "  bytes/dir =", totalBytes, "  duplex =", boolToStr(fullDuplex))
	println("CH0 TX -> CH1 RX, CH1 TX -> CH0 RX")

	bus := machine.I2C0
	if err := bus.Configure(machine.I2CConfig{Frequency: i2cSpeed}); err != nil {
		fatal("i2c configure", err)
	}
	chs, err := wk2132.Channels(wk2132.MachineBus{I2C: bus}, wk2132.Config{CheckTxFull: true})
	if err != nil {
		fatal("channels", err)
	}
	ch0, ch1 := chs[0], chs[1]
	for _, ch := range chs {
		if err := ch.Initialize(baud); err != nil {
			fatal(ch.String(), err)
		}
	}

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	pass, fail := 0, 0
	report := func(name, err string) {
		if err == "" {
			println("[PASS]", name)
			pass++
		} else {
			println("[FAIL]", name, ":", err)
			fail++
		}
	}

	if fullDuplex {
		report("Full-duplex integrity", runStreams(timeoutPerTest,
			&stream{label: "CH0 -> CH1", tx: ch0, rx: ch1, gen: patternA, n: totalBytes},
			&stream{label: "CH1 -> CH0", tx: ch1, rx: ch0, gen: patternB, n: totalBytes},
		))
	} else {
		report("CH0 -> CH1 integrity", runStreams(timeoutPerTest,
			&stream{label: "CH0 -> CH1", tx: ch0, rx: ch1, gen: patternA, n: totalBytes}))
		report("CH1 -> CH0 integrity", runStreams(timeoutPerTest,
			&stream{label: "CH1 -> CH0", tx: ch1, rx: ch0, gen: patternB, n: totalBytes}))
	}

	println("")
	println("Summary")
	println("  passed =", pass)
	println("  failed =", fail)
	if fail == 0 {
		blink(machine.LED, 3, 120*time.Millisecond)
	} else {
		for {
			blink(machine.LED, 1, 600*time.Millisecond)
			time.Sleep(800 * time.Millisecond)
		}
	}
}

func fatal(what string, err error) {
	println("fatal:", what, err.Error())
	for {
		time.Sleep(time.Hour)
	}
}

/*** Utilities ***/

func blink(pin machine.Pin, times int, on time.Duration) {
	for i := 0; i < times; i++ {
		pin.High()
		time.Sleep(on)
		pin.Low()
		time.Sleep(on)
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
