package ccs811

import (
	"fmt"
	"time"
)

// Flash replaces the chip's application firmware with image, an opaque
// binary for the chip's own bootloader (distributed by ams as .bin files).
//
// The procedure is strictly sequential and non-resumable:
//
//	reset → require valid app → erase → require erased →
//	stream image in 8-byte chunks → verify → require erased+verified+valid →
//	reset → require valid app
//
// No step is retried. A failure leaves the chip partially erased or
// partially written, but the bootloader itself always survives, so the
// whole procedure can be attempted again from the top. Each checkpoint
// surfaces a distinct *FlashError stage so operators can tell where the
// hardware sequence broke.
//
// Flash takes several seconds for a typical ~5KB image; run it with the
// chip awake (it does not bracket nWAKE) and nothing else on the bus.
func (d *Device) Flash(image []byte) error {
	if err := d.reset(); err != nil {
		return err
	}
	// The chip must already have some bootable state before an erase is
	// accepted.
	if err := d.checkStatus("flash", statusAppValid); err != nil {
		return &FlashError{Stage: StageNotValid, Err: err}
	}

	if err := d.eraseApp(); err != nil {
		return err
	}
	if err := d.checkStatus("flash", statusAppErase); err != nil {
		return &FlashError{Stage: StageNotErased, Err: err}
	}

	for off := 0; off < len(image); off += flashChunkSize {
		end := off + flashChunkSize
		if end > len(image) {
			end = len(image)
		}
		d.w[0] = regAppData
		n := copy(d.w[1:], image[off:end])
		if err := d.bus.Tx(d.addr, d.w[:1+n], nil); err != nil {
			return &FlashError{Stage: StageChunkWrite, Offset: off, Err: err}
		}
	}
	time.Sleep(waitAfterAppData)

	d.w[0] = regAppVerify
	if err := d.bus.Tx(d.addr, d.w[:1], nil); err != nil {
		return fmt.Errorf("ccs811: app verify: %w", err)
	}
	time.Sleep(waitAfterAppVerify)

	if err := d.checkStatus("flash", statusAppErase|statusAppVerify|statusAppValid); err != nil {
		return &FlashError{Stage: StageNotVerified, Err: err}
	}

	if err := d.reset(); err != nil {
		return err
	}
	if err := d.checkStatus("flash", statusAppValid); err != nil {
		return &FlashError{Stage: StagePostReset, Err: err}
	}
	return nil
}

func (d *Device) eraseApp() error {
	d.w[0] = regAppErase
	copy(d.w[1:5], appEraseMagic[:])
	if err := d.bus.Tx(d.addr, d.w[:5], nil); err != nil {
		return fmt.Errorf("ccs811: app erase: %w", err)
	}
	time.Sleep(waitAfterAppErase)
	return nil
}
