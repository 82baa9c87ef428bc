// Package i2c provides SMBus sessions on top of host I2C controllers.
package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/ramlights"
	"github.com/mklimuk/ramlights/busctx"
)

var _ ramlights.I2CBus = &GenericBus{}
var _ ramlights.SMBusCloser = &GenericBus{}

// GenericBus is a Linux /dev/i2c-N bus driven through periph.io.
type GenericBus struct {
	mx       sync.Mutex
	bus      i2c.Bus
	closer   func() error
	address  byte
	selected bool
}

// NewGenericBus opens the bus identified by dev. Accepted forms are the device
// path (/dev/i2c-1), the periph name (I2C1) or the bus number (1).
func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return &GenericBus{
		bus:    bus,
		closer: bus.Close,
	}, nil
}

// NewGenericBusFrom wraps an already opened periph bus. The caller keeps
// ownership of bus.
func NewGenericBusFrom(bus i2c.Bus) *GenericBus {
	return &GenericBus{bus: bus}
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

// SetAddress selects the target for register operations. The kernel driver
// addresses every message, so nothing goes on the wire here.
func (b *GenericBus) SetAddress(ctx context.Context, address byte) error {
	if err := ramlights.ValidateAddress(address); err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	b.address = address
	b.selected = true
	return nil
}

// ReadByteData performs an SMBus read byte: register write and one byte read
// joined by a repeated start.
func (b *GenericBus) ReadByteData(ctx context.Context, register byte) (byte, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if !b.selected {
		return 0, ramlights.ErrNoAddress
	}
	r := make([]byte, 1)
	err := b.bus.Tx(uint16(b.address), []byte{register}, r)
	if err != nil {
		return 0, fmt.Errorf("could not read register 0x%02X at 0x%02X: %w", register, b.address, err)
	}
	return r[0], nil
}

// WriteBlockData performs an SMBus block write.
func (b *GenericBus) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if !b.selected {
		return ramlights.ErrNoAddress
	}
	msg, err := ramlights.BlockFrame(register, data)
	if err != nil {
		return err
	}
	if busctx.IsVerbose(ctx) {
		slog.Debug("block write", "addr", fmt.Sprintf("0x%02X", b.address), "data", fmt.Sprintf("% X", msg))
	}
	err = b.bus.Tx(uint16(b.address), msg, nil)
	if err != nil {
		return fmt.Errorf("could not write block to register 0x%02X at 0x%02X: %w", register, b.address, err)
	}
	return nil
}

// SetSpeed changes the bus clock. Not every controller supports it.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	err := b.bus.SetSpeed(f)
	if err != nil {
		return fmt.Errorf("could not set %s clock on %s: %w", f, b.bus, err)
	}
	slog.Debug("bus clock set", "bus", b.bus.String(), "speed", f.String())
	return nil
}

func (b *GenericBus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
