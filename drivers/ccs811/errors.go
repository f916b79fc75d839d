package ccs811

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the driver.
var (
	// ErrBadHWID means the HW_ID register did not contain 0x81; either the
	// wrong device answers at 0x5A or the bus wiring is suspect.
	ErrBadHWID = errors.New("ccs811: unexpected hardware id")

	// ErrOutOfRange means a decoded reading exceeded the chip's valid
	// range (8192 ppm eCO2 / 1187 ppb tVOC) with a clear error flag.
	ErrOutOfRange = errors.New("ccs811: reading out of range")
)

// StatusError reports a STATUS register check whose required bits were not
// all present. Want is the required mask, Got the observed register.
type StatusError struct {
	Op   string // logical step, e.g. "begin", "flash: erase"
	Want byte
	Got  byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ccs811: %s: status %#08b lacks required bits %#08b", e.Op, e.Got, e.Want)
}

// ChipError reports a non-zero error flag in an ALG_RESULT_DATA read. The
// flag byte is the chip's own ERROR_ID snapshot.
type ChipError struct {
	Flag byte
}

func (e *ChipError) Error() string {
	return fmt.Sprintf("ccs811: chip reported error flag %#02x", e.Flag)
}

// FlashStage identifies the checkpoint at which a firmware flash aborted.
// The chip's bootloader survives a failure at any stage, so the whole
// procedure may be retried from the start.
type FlashStage uint8

const (
	StageNotValid   FlashStage = iota // no valid app present before erase
	StageNotErased                    // erase-complete bit missing
	StageChunkWrite                   // an APP_DATA chunk write failed
	StageNotVerified                  // verify/erase/valid bits missing after verify
	StagePostReset                    // valid-app bit missing after final reset
)

func (s FlashStage) String() string {
	switch s {
	case StageNotValid:
		return "not valid"
	case StageNotErased:
		return "not erased"
	case StageChunkWrite:
		return "chunk write"
	case StageNotVerified:
		return "not verified"
	case StagePostReset:
		return "invalid after reset"
	default:
		return "?"
	}
}

// FlashError wraps the failure of one flashing checkpoint.
type FlashError struct {
	Stage  FlashStage
	Offset int // byte offset into the image for StageChunkWrite, else 0
	Err    error
}

func (e *FlashError) Error() string {
	if e.Stage == StageChunkWrite {
		return fmt.Sprintf("ccs811: flash %s at offset %d: %v", e.Stage, e.Offset, e.Err)
	}
	return fmt.Sprintf("ccs811: flash %s: %v", e.Stage, e.Err)
}

func (e *FlashError) Unwrap() error { return e.Err }
