// Package errcode defines the stable, bus-facing error identifiers the gas
// node publishes. Codes are string newtypes: comparable, allocation-free,
// and usable directly as error values.
package errcode

import (
	"errors"

	"gasnode-go/drivers/ccs811"
)

// Code is a stable, bus-facing error identifier.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                Code = "ok"
	Busy              Code = "busy"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	InvalidPayload    Code = "invalid_payload"
	UnknownCapability Code = "unknown_capability"
	HALNotReady       Code = "hal_not_ready"
	Timeout           Code = "timeout"

	// Sensor taxonomy.
	Transport        Code = "transport"         // bus/pin operation failed
	ProtocolMismatch Code = "protocol_mismatch" // HW ID or status bits wrong at a checkpoint
	OutOfRange       Code = "out_of_range"      // decoded reading beyond valid range
	ChipError        Code = "chip_error"        // chip-reported error flag in a read

	// Firmware flashing checkpoints.
	FlashNotValid    Code = "flash_not_valid"
	FlashNotErased   Code = "flash_not_erased"
	FlashChunkWrite  Code = "flash_chunk_write"
	FlashNotVerified Code = "flash_not_verified"
	FlashPostReset   Code = "flash_post_reset"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps ccs811 driver errors onto the sensor taxonomy.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	var se *ccs811.StatusError
	var ce *ccs811.ChipError
	var fe *ccs811.FlashError
	switch {
	case errors.As(err, &fe):
		switch fe.Stage {
		case ccs811.StageNotValid:
			return FlashNotValid
		case ccs811.StageNotErased:
			return FlashNotErased
		case ccs811.StageChunkWrite:
			return FlashChunkWrite
		case ccs811.StageNotVerified:
			return FlashNotVerified
		case ccs811.StagePostReset:
			return FlashPostReset
		}
		return Error
	case errors.Is(err, ccs811.ErrBadHWID), errors.As(err, &se):
		return ProtocolMismatch
	case errors.Is(err, ccs811.ErrOutOfRange):
		return OutOfRange
	case errors.As(err, &ce):
		return ChipError
	default:
		return Transport
	}
}
