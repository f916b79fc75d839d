//go:build rp2040

package main

import (
	"context"
	"machine"
	"strconv"
	"time"

	"gasnode-go/bus"
	"gasnode-go/drivers/ccs811"
	"gasnode-go/types"

	"github.com/google/shlex"
	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// runConsole is a line-oriented operator shell on UART0. Values published
// by the HAL are echoed as they arrive; commands go through the capability
// tree like any other client.
func runConsole(ctx context.Context, conn *bus.Connection, term *uartx.UART, fw *uartx.UART) {
	valSub := conn.Subscribe(bus.Topic{"hal", "capability", "+", "+", "value"})
	defer conn.Unsubscribe(valSub)
	go func() {
		for m := range valSub.Channel() {
			switch v := m.Payload.(type) {
			case types.ECO2Value:
				println("[gas] eco2:", v.PPM, "ppm")
			case types.TVOCValue:
				println("[gas] tvoc:", v.PPB, "ppb")
			}
		}
	}()

	buf := make([]byte, 64)
	line := make([]byte, 0, 128)
	for {
		n, err := term.RecvSomeContext(ctx, buf)
		if err != nil {
			return
		}
		for _, c := range buf[:n] {
			if c != '\r' && c != '\n' {
				line = append(line, c)
				continue
			}
			if len(line) > 0 {
				dispatch(ctx, conn, fw, string(line))
				line = line[:0]
			}
		}
	}
}

func dispatch(ctx context.Context, conn *bus.Connection, fw *uartx.UART, line string) {
	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		println("[console] parse error")
		return
	}

	switch args[0] {
	case "help":
		println("commands: read | rate <ms> | baseline [hex] | env <rh> <degc> | mode <0..3> | versions | flash <nbytes>")

	case "read":
		control(ctx, conn, "read_now", nil)

	case "rate":
		if len(args) != 2 {
			println("[console] usage: rate <ms>")
			return
		}
		ms, err := strconv.Atoi(args[1])
		if err != nil {
			println("[console] bad period")
			return
		}
		control(ctx, conn, "set_rate", map[string]any{"period_ms": ms})

	case "baseline":
		if len(args) == 1 {
			if rep := control(ctx, conn, "baseline_get", nil); rep != nil {
				if bl, ok := rep["result"].(types.BaselineValue); ok {
					println("[gas] baseline:", bl.Baseline)
				}
			}
			return
		}
		v, err := strconv.ParseUint(args[1], 16, 16)
		if err != nil {
			println("[console] bad baseline word")
			return
		}
		control(ctx, conn, "baseline_set", types.BaselineValue{Baseline: uint16(v)})

	case "env":
		if len(args) != 3 {
			println("[console] usage: env <rh> <degc>")
			return
		}
		rh, err1 := strconv.ParseFloat(args[1], 32)
		t, err2 := strconv.ParseFloat(args[2], 32)
		if err1 != nil || err2 != nil {
			println("[console] bad env values")
			return
		}
		conn.Publish(conn.NewMessage(bus.Topic{"hal", "env"},
			types.EnvSample{Humidity: float32(rh), Temperature: float32(t)}, false))

	case "mode":
		if len(args) != 2 {
			println("[console] usage: mode <0..3>")
			return
		}
		m, err := strconv.Atoi(args[1])
		if err != nil || m < 0 || m > 3 {
			println("[console] bad mode")
			return
		}
		control(ctx, conn, "set_mode", types.ModeSet{Mode: uint8(m)})

	case "versions":
		if rep := control(ctx, conn, "versions", nil); rep != nil {
			if v, ok := rep["result"].(types.VersionsValue); ok {
				println("[gas] hw:", v.Hardware,
					"boot:", v.Bootloader[0], v.Bootloader[1],
					"app:", v.Application[0], v.Application[1])
			}
		}

	case "flash":
		if len(args) != 2 {
			println("[console] usage: flash <nbytes>")
			return
		}
		size, err := strconv.Atoi(args[1])
		if err != nil || size <= 0 {
			println("[console] bad image size")
			return
		}
		flashFirmware(ctx, conn, fw, size)

	default:
		println("[console] unknown command:", args[0])
	}
}

// control sends a method to the eco2/0 capability and returns the reply
// body, or nil after printing the failure.
func control(ctx context.Context, conn *bus.Connection, method string, payload any) map[string]any {
	topic := bus.Topic{"hal", "capability", string(types.KindECO2), 0, "control", method}
	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	rep, err := conn.RequestWait(rctx, conn.NewMessage(topic, payload, false))
	if err != nil {
		println("[console]", method, "failed:", err.Error())
		return nil
	}
	body, _ := rep.Payload.(map[string]any)
	if body == nil || body["ok"] != true {
		if body != nil {
			if e, ok := body["error"].(string); ok {
				println("[console]", method, "rejected:", e)
				return nil
			}
		}
		println("[console]", method, "rejected")
		return nil
	}
	return body
}

// flashFirmware receives size bytes of application firmware on the image
// UART and writes them to the chip. The HAL is detached first so the
// flasher has sole use of the bus, and reattached afterwards, which
// re-runs bring-up against the new application.
func flashFirmware(ctx context.Context, conn *bus.Connection, fw *uartx.UART, size int) {
	println("[flash] detaching hal devices …")
	conn.Publish(conn.NewMessage(bus.Topic{"config", "hal"}, types.HALConfig{}, true))
	time.Sleep(300 * time.Millisecond)

	println("[flash] waiting for", size, "bytes on uart1 …")
	img := make([]byte, 0, size)
	buf := make([]byte, 256)
	rctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	for len(img) < size {
		n, err := fw.RecvSomeContext(rctx, buf)
		if err != nil {
			cancel()
			println("[flash] receive aborted:", err.Error())
			conn.Publish(conn.NewMessage(bus.Topic{"config", "hal"}, gasNodeConfig(), true))
			return
		}
		if rem := size - len(img); n > rem {
			n = rem
		}
		img = append(img, buf[:n]...)
	}
	cancel()
	println("[flash] image received, writing …")

	// Flash does not bracket nWAKE; hold it low for the whole procedure.
	wake := &picoPin{p: machine.Pin(pinWake), n: pinWake}
	_ = wake.ConfigureOutput(false)
	dev := ccs811.New(machine.I2C0, ccs811.Config{})
	if err := dev.Flash(img); err != nil {
		println("[flash] FAILED:", err.Error())
	} else {
		println("[flash] ok")
	}
	wake.Set(true)

	println("[flash] reattaching hal devices …")
	conn.Publish(conn.NewMessage(bus.Topic{"config", "hal"}, gasNodeConfig(), true))
}
