package i2c

import (
	"context"
	"fmt"
	"sync"

	gobotio "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/ramlights"
)

var _ ramlights.SMBusCloser = &GobotBus{}

// GobotBus drives an SMBus through a gobot I2C connector. Selecting an address
// starts a gobot driver bound to it, so selection fails when the adaptor
// cannot open the target.
type GobotBus struct {
	mx        sync.Mutex
	connector gobotio.Connector
	busNr     int
	driver    *gobotio.GenericDriver
	address   byte
	finalize  func() error
}

// NewNanoPiBus connects the I2C part of a NanoPi NEO adaptor and uses bus busNr.
func NewNanoPiBus(busNr int) (*GobotBus, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	b := NewGobotBus(npi, busNr)
	b.finalize = npi.I2cBusAdaptor.Finalize
	return b, nil
}

// NewGobotBus uses an already connected gobot connector.
func NewGobotBus(connector gobotio.Connector, busNr int) *GobotBus {
	return &GobotBus{connector: connector, busNr: busNr}
}

func (b *GobotBus) SetAddress(ctx context.Context, address byte) error {
	if err := ramlights.ValidateAddress(address); err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	b.halt()
	driver := gobotio.NewGenericDriver(b.connector, "dimm", int(address), func(c gobotio.Config) {
		c.SetBus(b.busNr)
	})
	err := driver.Start()
	if err != nil {
		return fmt.Errorf("could not select 0x%02X on bus %d: %w", address, b.busNr, err)
	}
	b.driver = driver
	b.address = address
	return nil
}

func (b *GobotBus) ReadByteData(ctx context.Context, register byte) (byte, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.driver == nil {
		return 0, ramlights.ErrNoAddress
	}
	err := b.driver.Write([]byte{register})
	if err != nil {
		return 0, fmt.Errorf("could not set register pointer 0x%02X at 0x%02X: %w", register, b.address, err)
	}
	val := make([]byte, 1)
	err = b.driver.Read(val)
	if err != nil {
		return 0, fmt.Errorf("could not read register 0x%02X at 0x%02X: %w", register, b.address, err)
	}
	return val[0], nil
}

// WriteBlockData sends the SMBus block layout as a plain write; some adaptors
// do not implement the block data ioctl.
func (b *GobotBus) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.driver == nil {
		return ramlights.ErrNoAddress
	}
	msg, err := ramlights.BlockFrame(register, data)
	if err != nil {
		return err
	}
	err = b.driver.Write(msg)
	if err != nil {
		return fmt.Errorf("could not write block to register 0x%02X at 0x%02X: %w", register, b.address, err)
	}
	return nil
}

func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.halt()
	if b.finalize == nil {
		return nil
	}
	return b.finalize()
}

func (b *GobotBus) halt() {
	if b.driver == nil {
		return
	}
	_ = b.driver.Halt()
	b.driver = nil
}
