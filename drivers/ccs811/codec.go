package ccs811

// envBytes packs one physical value (humidity in %RH or temperature in °C)
// into the chip's ENV_DATA fixed-point format: 7 integer bits and a 9-bit
// fraction in units of 1/512.
//
// The fraction keeps the original arithmetic, including the "-1" term: an
// input with a zero fractional part wraps negative in the uint16 cast and
// then saturates at 511. Deployed sensors were calibrated against exactly
// this encoding, so it is reproduced bit for bit rather than corrected.
//
// Values are expected in [0,128); out-of-range inputs wrap/truncate
// silently and must be validated by the caller.
func envBytes(value float32) [2]byte {
	base := floor32(value)
	// Only 9 fraction bits are available; 512 would need ten, so saturate
	// at 511. The int32 hop keeps the negative wrap deterministic.
	fraction := uint16(int32((value-base)*512.0 - 1.0))
	if fraction > 511 {
		fraction = 511
	}
	// 7 bits of integer part plus the fraction's top bit.
	hi := (byte(base)&0x7F)<<1 | byte(fraction>>8&0x01)
	// The remaining 8 fraction bits.
	lo := byte(fraction & 0xFF)
	return [2]byte{hi, lo}
}

// floor32 avoids pulling package math into a TinyGo build for non-negative
// inputs, which is all ENV_DATA can represent anyway.
func floor32(v float32) float32 {
	i := float32(int32(v))
	if i > v {
		i--
	}
	return i
}
