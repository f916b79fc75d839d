package types

// ------------------------
// Air quality (CCS811)
// ------------------------

type AirQualityInfo struct {
	Sensor string `json:"sensor"` // "ccs811"
	Addr   uint16 `json:"addr"`   // I2C address
	Bus    string `json:"bus"`    // "i2c0", ...
	HasWake bool  `json:"has_wake"`
}

type ECO2Value struct {
	// Equivalent CO2 in ppm (400..8192).
	PPM uint16 `json:"ppm"`
}

type TVOCValue struct {
	// Total volatile organic compounds in ppb (0..1187).
	PPB uint16 `json:"ppb"`
}

// BaselineValue carries the chip's opaque calibration word. Capture it
// after a burn-in period and restore it after power cycles.
type BaselineValue struct {
	Baseline uint16 `json:"baseline"`
}

// EnvSample is externally measured humidity/temperature fed to the chip's
// compensation algorithm (topic "hal/env"). Physical units, both in
// [0,128) per the chip's fixed-point format.
type EnvSample struct {
	Humidity    float32 `json:"humidity"`    // %RH
	Temperature float32 `json:"temperature"` // °C
}

// VersionsValue reports the chip's raw version registers.
type VersionsValue struct {
	Hardware    uint8    `json:"hardware"`
	Bootloader  [2]uint8 `json:"bootloader"`
	Application [2]uint8 `json:"application"`
}

// ModeSet selects the measurement drive mode (0=idle, 1=1s, 2=10s, 3=60s).
// Moving to a faster mode needs ~10 minutes of idle first; the HAL passes
// the value through without enforcing that.
type ModeSet struct {
	Mode uint8 `json:"mode"`
}
