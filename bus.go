package ramlights

import (
	"context"
	"errors"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// ErrInvalidAddress is returned when a target address does not fit in the 7-bit address space.
var ErrInvalidAddress = errors.New("invalid 7-bit device address")

// ErrNoAddress is returned by register operations issued before any address was selected.
var ErrNoAddress = errors.New("no target address selected")

// ErrBlockTooLong is returned for SMBus block writes longer than MaxBlockLen.
var ErrBlockTooLong = errors.New("smbus block too long")

// MaxBlockLen is the SMBus 2.0 limit for a single block transfer.
const MaxBlockLen = 32

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a raw I2C transport where every transfer carries the target address.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// SMBus is a bus session with a currently selected target address. Register
// operations go to the last address passed to SetAddress.
type SMBus interface {
	SetAddress(ctx context.Context, address byte) error
	ReadByteData(ctx context.Context, register byte) (byte, error)
	// WriteBlockData transmits register, byte count and payload in a single write.
	WriteBlockData(ctx context.Context, register byte, data []byte) error
}

// SMBusCloser is an SMBus session owned by the application.
type SMBusCloser interface {
	SMBus
	Close() error
}

// ValidateAddress checks that address fits in the 7-bit address space.
func ValidateAddress(address byte) error {
	if address > 0x7F {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidAddress, address)
	}
	return nil
}

// BlockFrame lays out an SMBus block write: register, count, payload.
func BlockFrame(register byte, data []byte) ([]byte, error) {
	if len(data) > MaxBlockLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrBlockTooLong, len(data), MaxBlockLen)
	}
	buf := make([]byte, 0, len(data)+2)
	buf = append(buf, register, byte(len(data)))
	return append(buf, data...), nil
}
