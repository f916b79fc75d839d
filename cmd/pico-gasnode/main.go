//go:build rp2040

package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	"gasnode-go/bus"
	"gasnode-go/services/hal"
	"gasnode-go/types"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"
)

// Pico wiring: CCS811 on I2C0 (GP4 SDA / GP5 SCL), nWAKE on GP6, the
// on-board LED on GP25, operator console on UART0 (GP0/GP1), firmware
// images arrive on UART1 (GP8/GP9).
const (
	pinSDA  = machine.GP4
	pinSCL  = machine.GP5
	pinWake = 6
	pinLED  = 25
)

// -----------------------------------------------------------------------------
// Resource factories
// -----------------------------------------------------------------------------

type picoFactory struct{}

func (picoFactory) ByID(id string) (drivers.I2C, bool) {
	if id == "i2c0" {
		return machine.I2C0, true
	}
	return nil, false
}

func (picoFactory) ByNumber(n int) (hal.GPIOPin, bool) {
	if n < 0 || n > 29 {
		return nil, false
	}
	return &picoPin{p: machine.Pin(n), n: n}, true
}

type picoPin struct {
	p machine.Pin
	n int
}

func (g *picoPin) ConfigureOutput(initial bool) error {
	g.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	g.p.Set(initial)
	return nil
}
func (g *picoPin) Set(b bool) { g.p.Set(b) }
func (g *picoPin) Get() bool  { return g.p.Get() }
func (g *picoPin) Number() int {
	return g.n
}

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

func gasNodeConfig() types.HALConfig {
	return types.HALConfig{
		Devices: []types.Device{
			{
				ID:     "gas0",
				Type:   "ccs811",
				BusRef: types.BusRef{Type: "i2c", ID: "i2c0"},
				Params: hal.CCS811Params{WakePin: pinWake, Mode: 1},
			},
			{
				ID:     "status_led",
				Type:   "led",
				Params: types.LEDParams{Pin: pinLED},
			},
		},
	}
}

func main() {
	time.Sleep(2 * time.Second)
	ctx := context.Background()

	println("[gasnode] configuring i2c0 …")
	if err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       pinSDA,
		SCL:       pinSCL,
		Frequency: 100_000,
	}); err != nil {
		println("[gasnode] i2c0 configure failed:", err.Error())
		return
	}

	println("[gasnode] configuring uarts …")
	term := uartx.UART0
	_ = term.Configure(uartx.UARTConfig{BaudRate: 115200, TX: machine.GP0, RX: machine.GP1})
	fw := uartx.UART1
	_ = fw.Configure(uartx.UARTConfig{BaudRate: 115200, TX: machine.GP8, RX: machine.GP9})

	println("[gasnode] bootstrapping bus …")
	b := bus.NewBus(8)
	halConn := b.NewConnection("hal")
	uiConn := b.NewConnection("ui")

	println("[gasnode] starting hal.Run …")
	go hal.Run(ctx, halConn, picoFactory{}, picoFactory{})

	println("[gasnode] publishing config/hal …")
	uiConn.Publish(uiConn.NewMessage(bus.Topic{"config", "hal"}, gasNodeConfig(), true))

	go runConsole(ctx, uiConn, term, fw)

	// Blink the status LED over the capability tree and report memory.
	ledOn := false
	setLED := bus.Topic{"hal", "capability", string(types.KindLED), 0, "control", "set"}
	for {
		ledOn = !ledOn
		rctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		if _, err := uiConn.RequestWait(rctx, uiConn.NewMessage(setLED, types.LEDSet{Level: ledOn}, false)); err != nil {
			println("[gasnode] led set error:", err.Error())
		}
		cancel()
		printMem()
		time.Sleep(1 * time.Second)
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
// Uses builtin println to avoid fmt overhead/allocations.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
