package hal

import (
	"context"
	"sync"
	"time"

	"gasnode-go/drivers/ccs811"
	"gasnode-go/types"

	"tinygo.org/x/drivers"
)

// ccs811Adaptor exposes one CCS811 as the eco2 and tvoc capabilities.
//
// The chip samples autonomously at the configured drive-mode interval, so
// Trigger has nothing to start; Collect fetches whatever the measurement
// engine last produced. Driver-level failures (error flag, out-of-range)
// surface unchanged so the service can publish their error codes.
type ccs811Adaptor struct {
	id   string
	bus  string
	addr uint16
	wake bool

	// Collect runs on the per-bus worker goroutine while Control methods
	// arrive on the service goroutine; the Device's fixed buffers require
	// one caller at a time.
	mu  sync.Mutex
	dev *ccs811.Device
}

// CCS811Params is the device-specific config shape.
type CCS811Params struct {
	Addr     uint16 `json:"addr,omitempty"`     // defaults to 0x5A
	WakePin  int    `json:"wake_pin,omitempty"` // optional nWAKE output; -1 or absent = none
	Mode     uint8  `json:"mode,omitempty"`     // drive mode, defaults to 1 (1s)
	Baseline uint16 `json:"baseline,omitempty"` // restored after bring-up when non-zero
}

// NewCCS811Adaptor brings the chip up (reset, ID check, app start), applies
// the configured drive mode and optional stored baseline, and returns the
// adaptor. A bring-up failure is returned as-is; the device is left for a
// later config retry.
func NewCCS811Adaptor(id, busID string, bus drivers.I2C, p CCS811Params, wake ccs811.WakePin) (Adaptor, error) {
	if p.Addr == 0 {
		p.Addr = ccs811.AddressDefault
	}
	dev := ccs811.New(bus, ccs811.Config{Address: p.Addr, Wake: wake})
	if err := dev.Begin(); err != nil {
		return nil, err
	}
	mode := ccs811.Mode(p.Mode)
	if p.Mode == 0 {
		mode = ccs811.ModeSec1
	}
	if err := dev.Start(mode); err != nil {
		return nil, err
	}
	if p.Baseline != 0 {
		if err := dev.SetBaseline(p.Baseline); err != nil {
			return nil, err
		}
	}
	return &ccs811Adaptor{id: id, bus: busID, addr: p.Addr, dev: dev, wake: wake != nil}, nil
}

func (a *ccs811Adaptor) ID() string { return a.id }

func (a *ccs811Adaptor) Capabilities() []CapInfo {
	detail := map[string]any{
		"sensor": "ccs811", "addr": a.addr, "bus": a.bus, "has_wake": a.wake,
		"schema_version": 1, "driver": "ccs811",
	}
	return []CapInfo{
		{Kind: string(types.KindECO2), Info: detail},
		{Kind: string(types.KindTVOC), Info: detail},
	}
}

func (a *ccs811Adaptor) Trigger(ctx context.Context) (time.Duration, error) {
	// Sampling is free-running on the chip; collect straight away.
	return 0, nil
}

func (a *ccs811Adaptor) Collect(ctx context.Context) (Sample, error) {
	a.mu.Lock()
	data, err := a.dev.Read()
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	ts := time.Now().UnixMilli()
	return Sample{
		{Kind: string(types.KindECO2), Payload: types.ECO2Value{PPM: data.ECO2}, TsMs: ts},
		{Kind: string(types.KindTVOC), Payload: types.TVOCValue{PPB: data.TVOC}, TsMs: ts},
	}, nil
}

func (a *ccs811Adaptor) Control(kind, method string, payload any) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch method {
	case "set_env":
		var env types.EnvSample
		if err := decodeJSON(payload, &env); err != nil {
			return nil, err
		}
		if err := a.dev.SetEnvData(env.Humidity, env.Temperature); err != nil {
			return nil, err
		}
		return types.OKReply{OK: true}, nil

	case "baseline_get":
		v, err := a.dev.Baseline()
		if err != nil {
			return nil, err
		}
		return types.BaselineValue{Baseline: v}, nil

	case "baseline_set":
		var b types.BaselineValue
		if err := decodeJSON(payload, &b); err != nil {
			return nil, err
		}
		if err := a.dev.SetBaseline(b.Baseline); err != nil {
			return nil, err
		}
		return types.OKReply{OK: true}, nil

	case "set_mode":
		var m types.ModeSet
		if err := decodeJSON(payload, &m); err != nil {
			return nil, err
		}
		if m.Mode > uint8(ccs811.ModeSec60) {
			return nil, ErrUnsupported
		}
		if err := a.dev.Start(ccs811.Mode(m.Mode)); err != nil {
			return nil, err
		}
		return types.OKReply{OK: true}, nil

	case "versions":
		hw, err := a.dev.HardwareVersion()
		if err != nil {
			return nil, err
		}
		boot, err := a.dev.BootloaderVersion()
		if err != nil {
			return nil, err
		}
		app, err := a.dev.ApplicationVersion()
		if err != nil {
			return nil, err
		}
		return types.VersionsValue{Hardware: hw, Bootloader: boot, Application: app}, nil

	default:
		return nil, ErrUnsupported
	}
}
