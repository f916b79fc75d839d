// Package ccs811 provides a TinyGo driver for the ams CCS811 digital gas
// sensor (equivalent CO2 and total VOC over I2C, with an optional
// active-low nWAKE line).
//
// The driver is strictly synchronous: every operation blocks for its bus
// transactions plus the chip's mandated settle intervals, and nothing is
// retried. The Device is not safe for concurrent use without external
// locking; it assumes sole ownership of the chip's bus address.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when
// both w and r are provided, without releasing the bus.
package ccs811

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"
)

// WakePin abstracts the optional nWAKE output. It is the subset of a GPIO
// output the driver needs; platforms without wake wiring pass no pin and
// get no-op bracketing.
type WakePin interface {
	Set(level bool)
}

// Config controls construction-time options. All fields are optional.
type Config struct {
	// Address defaults to 0x5A if zero (0x5B with the ADDR pin high).
	Address uint16
	// Wake, if non-nil, is driven low before transactions that need the
	// measurement engine awake and high afterwards. The pin must already
	// be configured as an output.
	Wake WakePin
}

// Data is one decoded measurement.
type Data struct {
	ECO2 uint16 // equivalent CO2, ppm, 400..8192
	TVOC uint16 // total VOC, ppb, 0..1187
	// Raw is the full 8-byte ALG_RESULT_DATA block the values were decoded
	// from, kept for diagnostics (status, error flag, raw ADC).
	Raw [8]byte
}

// Device wraps an I2C connection to a CCS811. Use New to construct one.
type Device struct {
	bus  drivers.I2C
	addr uint16
	wake WakePin

	// Fixed buffers to avoid per-call heap allocations.
	w [9]byte
	r [8]byte
}

// New creates a CCS811 device on an already-configured I2C bus. It only
// builds the handle; Begin performs the actual chip bring-up.
func New(bus drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{bus: bus, addr: addr, wake: cfg.Wake}
}

// Begin brings the chip from power-on (or any prior state) into
// application mode: software reset, hardware-ID check, APP_START, then a
// STATUS check for app-mode plus verified firmware. The first failing step
// aborts the sequence with nWAKE still asserted, so the chip stays
// addressable for diagnosis; the line is released only on success. Begin
// is idempotent at the protocol level, but re-running it discards any
// in-progress measurement.
func (d *Device) Begin() error {
	d.awake()

	if err := d.reset(); err != nil {
		return err
	}
	if err := d.checkHWID(); err != nil {
		return err
	}
	if err := d.appStart(); err != nil {
		return err
	}
	if err := d.checkStatus("begin", statusAppMode|statusAppVerify); err != nil {
		return err
	}
	d.sleep()
	return nil
}

// Start selects the measurement drive mode. No data is available until one
// full interval for the mode has elapsed. Moving from a slow mode to a
// faster one is only supported after ~10 minutes in ModeIdle (vendor
// guidance); the driver does not enforce this.
func (d *Device) Start(mode Mode) error {
	d.awake()
	defer d.sleep()

	d.w[0] = regMeasMode
	d.w[1] = byte(mode) << measModeShift
	if err := d.bus.Tx(d.addr, d.w[:2], nil); err != nil {
		return fmt.Errorf("ccs811: set mode: %w", err)
	}
	return nil
}

// Read fetches and decodes the most recent sample. It fails if the chip's
// error flag (byte 5) is set or if either value is outside the chip's
// valid range; the raw block is returned with the decoded values for
// diagnostics.
func (d *Device) Read() (Data, error) {
	d.awake()
	d.w[0] = regAlgResultData
	err := d.bus.Tx(d.addr, d.w[:1], d.r[:8])
	d.sleep()
	if err != nil {
		return Data{}, fmt.Errorf("ccs811: read result: %w", err)
	}

	var data Data
	copy(data.Raw[:], d.r[:8])
	if flag := data.Raw[5]; flag != 0 {
		return data, &ChipError{Flag: flag}
	}
	data.ECO2 = uint16(data.Raw[0])<<8 | uint16(data.Raw[1])
	data.TVOC = uint16(data.Raw[2])<<8 | uint16(data.Raw[3])
	if data.ECO2 > MaxECO2 || data.TVOC > MaxTVOC {
		return data, fmt.Errorf("%w: %d ppm, %d ppb", ErrOutOfRange, data.ECO2, data.TVOC)
	}
	return data, nil
}

// SetEnvData feeds externally measured humidity (%RH) and temperature (°C)
// to the chip's compensation algorithm. Both values must lie in [0,128);
// see envBytes for the fixed-point format and its integer-input edge case.
func (d *Device) SetEnvData(humidity, temperature float32) error {
	h := envBytes(humidity)
	t := envBytes(temperature)
	d.w[0] = regEnvData
	d.w[1], d.w[2] = h[0], h[1]
	d.w[3], d.w[4] = t[0], t[1]
	if err := d.bus.Tx(d.addr, d.w[:5], nil); err != nil {
		return fmt.Errorf("ccs811: write env data: %w", err)
	}
	return nil
}

// Baseline reads the chip's opaque calibration word. The value is not
// interpreted; store it and hand it back via SetBaseline after a restart.
func (d *Device) Baseline() (uint16, error) {
	d.w[0] = regBaseline
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, fmt.Errorf("ccs811: read baseline: %w", err)
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

// SetBaseline writes a previously captured calibration word verbatim.
func (d *Device) SetBaseline(baseline uint16) error {
	d.w[0] = regBaseline
	d.w[1] = byte(baseline >> 8)
	d.w[2] = byte(baseline)
	if err := d.bus.Tx(d.addr, d.w[:3], nil); err != nil {
		return fmt.Errorf("ccs811: write baseline: %w", err)
	}
	return nil
}

// HardwareVersion returns the HW_VERSION byte (0x1X family).
func (d *Device) HardwareVersion() (byte, error) {
	if err := d.readInto(regHWVersion, d.r[:1]); err != nil {
		return 0, fmt.Errorf("ccs811: read hardware version: %w", err)
	}
	return d.r[0], nil
}

// BootloaderVersion returns the two raw FW_BOOT_VERSION bytes.
func (d *Device) BootloaderVersion() ([2]byte, error) {
	if err := d.readInto(regFWBootVersion, d.r[:2]); err != nil {
		return [2]byte{}, fmt.Errorf("ccs811: read bootloader version: %w", err)
	}
	return [2]byte{d.r[0], d.r[1]}, nil
}

// ApplicationVersion returns the two raw FW_APP_VERSION bytes. Newer
// application firmware can be written with Flash.
func (d *Device) ApplicationVersion() ([2]byte, error) {
	if err := d.readInto(regFWAppVersion, d.r[:2]); err != nil {
		return [2]byte{}, fmt.Errorf("ccs811: read application version: %w", err)
	}
	return [2]byte{d.r[0], d.r[1]}, nil
}

// ---- internal steps ----

func (d *Device) readInto(reg byte, dst []byte) error {
	d.w[0] = reg
	return d.bus.Tx(d.addr, d.w[:1], dst)
}

func (d *Device) reset() error {
	d.w[0] = regSWReset
	copy(d.w[1:5], swResetMagic[:])
	if err := d.bus.Tx(d.addr, d.w[:5], nil); err != nil {
		return fmt.Errorf("ccs811: software reset: %w", err)
	}
	time.Sleep(waitAfterReset)
	return nil
}

func (d *Device) appStart() error {
	d.w[0] = regAppStart
	if err := d.bus.Tx(d.addr, d.w[:1], nil); err != nil {
		return fmt.Errorf("ccs811: app start: %w", err)
	}
	time.Sleep(waitAfterAppStart)
	return nil
}

func (d *Device) checkHWID() error {
	if err := d.readInto(regHWID, d.r[:1]); err != nil {
		return fmt.Errorf("ccs811: read hardware id: %w", err)
	}
	if d.r[0] != hwIDExpected {
		return fmt.Errorf("%w: %#02x", ErrBadHWID, d.r[0])
	}
	return nil
}

// checkStatus requires all bits of want to be present in STATUS. Required
// bits only; other status bits are ignored.
func (d *Device) checkStatus(op string, want byte) error {
	if err := d.readInto(regStatus, d.r[:1]); err != nil {
		return fmt.Errorf("ccs811: %s: read status: %w", op, err)
	}
	if d.r[0]&want != want {
		return &StatusError{Op: op, Want: want, Got: d.r[0]}
	}
	return nil
}

// awake drives nWAKE low and lets the oscillator settle; sleep releases it
// to high-impedance idle. Both are no-ops without a wake pin.
func (d *Device) awake() {
	if d.wake == nil {
		return
	}
	d.wake.Set(false)
	time.Sleep(waitAfterWake)
}

func (d *Device) sleep() {
	if d.wake == nil {
		return
	}
	d.wake.Set(true)
}
