package dimm

import (
	"fmt"

	"github.com/mklimuk/ramlights/rgb"
)

// LEDCount is the number of addressable LEDs on a Dominator Platinum module.
const LEDCount = 12

const frameHeader byte = 0x0C

// Frame is the LED command buffer: header, one RGB triple per LED and a
// trailing checksum slot.
type Frame []byte

// FrameLen returns the frame length for ledCount LEDs.
func FrameLen(ledCount int) int {
	if ledCount < 0 {
		ledCount = 0
	}
	return 1 + 3*ledCount + 1
}

// BuildFrame allocates a frame for ledCount LEDs, all set to c. The checksum
// slot is left zeroed until the frame is sent.
func BuildFrame(ledCount int, c rgb.Color) Frame {
	if ledCount < 0 {
		ledCount = 0
	}
	frame := make(Frame, FrameLen(ledCount))
	frame[0] = frameHeader
	// length is exact, cannot fail
	_ = FillColors(frame, ledCount, c)
	return frame
}

// FillColors writes c into the first ledCount LED slots of frame.
func FillColors(frame Frame, ledCount int, c rgb.Color) error {
	if len(frame) < FrameLen(ledCount) {
		return fmt.Errorf("dimm: frame of %d bytes cannot hold %d LEDs", len(frame), ledCount)
	}
	for led := 0; led < ledCount; led++ {
		offset := 1 + 3*led
		frame[offset] = c.R
		frame[offset+1] = c.G
		frame[offset+2] = c.B
	}
	return nil
}

// LED returns the color stored in the given LED slot.
func (f Frame) LED(i int) rgb.Color {
	offset := 1 + 3*i
	return rgb.Color{R: f[offset], G: f[offset+1], B: f[offset+2]}
}

// Checksummed returns a copy of the frame with the trailing CRC filled in.
func (f Frame) Checksummed() Frame {
	buf := make(Frame, len(f))
	copy(buf, f)
	if len(buf) == 0 {
		return buf
	}
	buf[len(buf)-1] = CRC8(crcInit, crcPoly, buf[:len(buf)-1])
	return buf
}
