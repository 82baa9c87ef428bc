// Package smbus layers SMBus register semantics over raw I2C transports that
// only offer whole-message reads and writes, such as USB bridges.
package smbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/ramlights"
)

var _ ramlights.SMBus = &Session{}

// Session keeps the selected target address for a raw I2C transport.
type Session struct {
	mx         sync.Mutex
	transport  ramlights.I2CBus
	address    byte
	selected   bool
	retryLimit int
}

func NewSession(transport ramlights.I2CBus) *Session {
	return &Session{transport: transport, retryLimit: 2}
}

// SetAddress selects the target for subsequent register operations.
func (s *Session) SetAddress(ctx context.Context, address byte) error {
	if err := ramlights.ValidateAddress(address); err != nil {
		return err
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	s.address = address
	s.selected = true
	return nil
}

// ReadByteData writes the register pointer and reads back a single byte.
func (s *Session) ReadByteData(ctx context.Context, register byte) (byte, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.selected {
		return 0, ramlights.ErrNoAddress
	}
	buf := make([]byte, 1)
	err := s.retry(ctx, func() error {
		err := s.transport.WriteToAddr(ctx, s.address, []byte{register})
		if err != nil {
			return fmt.Errorf("could not set register pointer 0x%02X: %w", register, err)
		}
		err = s.transport.ReadFromAddr(ctx, s.address, buf)
		if err != nil {
			return fmt.Errorf("could not read register 0x%02X: %w", register, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteBlockData sends register, byte count and data in one write.
func (s *Session) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.selected {
		return ramlights.ErrNoAddress
	}
	msg, err := ramlights.BlockFrame(register, data)
	if err != nil {
		return err
	}
	return s.retry(ctx, func() error {
		err := s.transport.WriteToAddr(ctx, s.address, msg)
		if err != nil {
			return fmt.Errorf("could not write block to register 0x%02X: %w", register, err)
		}
		return nil
	})
}

// Close releases the underlying bus if it supports closing.
func (s *Session) Close() error {
	if c, ok := s.transport.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *Session) retry(ctx context.Context, op func() error) error {
	var err error
	for i := s.retryLimit; i > 0; i-- {
		err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ramlights.ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = s.transport.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}
