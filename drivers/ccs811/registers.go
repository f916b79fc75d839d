// Register/mailbox addresses, status bits and mandatory wait intervals.

package ccs811

import "time"

const (
	// 7-bit I2C address with the ADDR pin low.
	AddressDefault = 0x5A

	// Value expected in the HW_ID register for a genuine CCS811.
	hwIDExpected = 0x81

	// --- Register/mailbox sub-addresses (1 byte unless stated otherwise) ---

	regStatus        = 0x00
	regMeasMode      = 0x01
	regAlgResultData = 0x02 // up to 8 bytes
	regEnvData       = 0x05 // 4 bytes
	regBaseline      = 0x11 // 2 bytes
	regHWID          = 0x20
	regHWVersion     = 0x21
	regFWBootVersion = 0x23 // 2 bytes
	regFWAppVersion  = 0x24 // 2 bytes
	regAppErase      = 0xF1 // 4-byte magic
	regAppData       = 0xF2 // up to 8 bytes per chunk
	regAppVerify     = 0xF3 // command, no payload
	regAppStart      = 0xF4 // command, no payload
	regSWReset       = 0xFF // 4-byte magic

	// --- STATUS bits ---

	statusAppMode   = 0x80 // else boot mode
	statusAppErase  = 0x40 // else no erase completed
	statusAppVerify = 0x20 // else no verify completed
	statusAppValid  = 0x10 // else no valid app firmware loaded

	// MEAS_MODE places the drive mode in bits 6:4.
	measModeShift = 4

	// Firmware is streamed to APP_DATA in chunks of this size; the final
	// chunk may be shorter.
	flashChunkSize = 8
)

// Wait intervals. The erase wait in particular is raised above the
// datasheet minimum (300ms was not enough on real parts).
const (
	waitAfterReset     = 2 * time.Millisecond
	waitAfterAppStart  = 1 * time.Millisecond
	waitAfterWake      = 50 * time.Microsecond
	waitAfterAppErase  = 500 * time.Millisecond
	waitAfterAppVerify = 70 * time.Millisecond
	waitAfterAppData   = 50 * time.Millisecond
)

// Command magics the chip requires as register payloads.
var (
	swResetMagic  = [4]byte{0x11, 0xE5, 0x72, 0x8A}
	appEraseMagic = [4]byte{0xE7, 0xA7, 0xE6, 0x09}
)

// Mode selects the chip's measurement drive mode. The value is a
// multiplier of the internal measurement cycle.
type Mode uint8

const (
	ModeIdle  Mode = 0 // no measurements
	ModeSec1  Mode = 1 // one sample per second
	ModeSec10 Mode = 2 // one sample per 10 seconds
	ModeSec60 Mode = 3 // one sample per 60 seconds
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeSec1:
		return "1s"
	case ModeSec10:
		return "10s"
	case ModeSec60:
		return "60s"
	default:
		return "?"
	}
}

// Valid measurement ranges. Decoded readings beyond these are treated as
// failed reads, not unusual values.
const (
	MaxECO2 = 8192 // ppm
	MaxTVOC = 1187 // ppb
)
