// Package dimm drives the RGB lighting controller found on Corsair Dominator
// Platinum memory modules.
//
// The controller sits on the SMBus shared with the SPD EEPROMs. It is
// identified by two signature registers and accepts a full LED frame split
// over two block writes:
//
//	0x31 <- frame[0:32]
//	wait 800us
//	0x32 <- frame[32:]
//	wait 200us
//
// Typical usage:
//
//	s := dimm.NewScanner()
//	report := s.Apply(ctx, bus, rgb.MustParse("0xFF0000"))
package dimm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/ramlights"
	"github.com/mklimuk/ramlights/busctx"
)

// DeviceName is reported for every identified controller.
const DeviceName = "Corsair Dominator Platinum"

// Scan range, reserved addresses at both ends excluded.
const (
	MinAddress byte = 0x03
	MaxAddress byte = 0x77
)

const (
	regRevision byte = 0x43
	regModel    byte = 0x44
	regChunk1   byte = 0x31
	regChunk2   byte = 0x32
)

const (
	revisionA byte = 0x1A
	revisionB byte = 0x1B
	modelID   byte = 0x04
)

const chunkSize = 32

// settle times required by the controller after each chunk
const (
	chunk1Delay = 800 * time.Microsecond
	chunk2Delay = 200 * time.Microsecond
)

var ErrFrameTooShort = fmt.Errorf("dimm: frame shorter than %d bytes", chunkSize+1)
var ErrNotIdentified = errors.New("dimm: device signature mismatch")

// Device describes an identified controller.
type Device struct {
	Name     string
	Address  byte
	Revision byte
	Model    byte
}

func (d Device) String() string {
	return fmt.Sprintf("%s at address %s", d.Name, FormatByte(d.Address))
}

// FormatByte renders addresses and register values as 0xNN.
func FormatByte(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}

// Controller talks to a single lighting controller at a fixed address.
type Controller struct {
	transport ramlights.SMBus
	address   byte
	config    Opts
}

func NewController(transport ramlights.SMBus, address byte, opts ...Opt) *Controller {
	return &Controller{
		transport: transport,
		address:   address,
		config:    newOpts(opts),
	}
}

// Identify selects the controller address and checks both signature registers.
// A selection error is returned unwrapped from the transport; any read error or
// unexpected value yields ErrNotIdentified.
func (c *Controller) Identify(ctx context.Context) (Device, error) {
	err := c.transport.SetAddress(ctx, c.address)
	if err != nil {
		return Device{}, err
	}
	rev, err := c.transport.ReadByteData(ctx, regRevision)
	if err != nil {
		return Device{}, fmt.Errorf("%w: read reg 0x%02X: %v", ErrNotIdentified, regRevision, err)
	}
	if rev != revisionA && rev != revisionB {
		return Device{}, fmt.Errorf("%w: reg 0x%02X = 0x%02X", ErrNotIdentified, regRevision, rev)
	}
	model, err := c.transport.ReadByteData(ctx, regModel)
	if err != nil {
		return Device{}, fmt.Errorf("%w: read reg 0x%02X: %v", ErrNotIdentified, regModel, err)
	}
	if model != modelID {
		return Device{}, fmt.Errorf("%w: reg 0x%02X = 0x%02X", ErrNotIdentified, regModel, model)
	}
	return Device{
		Name:     DeviceName,
		Address:  c.address,
		Revision: rev,
		Model:    model,
	}, nil
}

// Apply sends frame to the currently selected address. The frame itself is
// not modified; a checksummed copy is transmitted.
func (c *Controller) Apply(ctx context.Context, frame Frame) error {
	return apply(ctx, c.transport, frame, c.config.Sleep, c.config.Logger)
}

// Apply sends frame to the address currently selected on bus using the
// controller's two chunk transaction.
func Apply(ctx context.Context, bus ramlights.SMBus, frame Frame) error {
	return apply(ctx, bus, frame, time.Sleep, slog.Default())
}

func apply(ctx context.Context, bus ramlights.SMBus, frame Frame, sleep func(time.Duration), logger *slog.Logger) error {
	if len(frame) <= chunkSize {
		return ErrFrameTooShort
	}
	data := frame.Checksummed()
	if busctx.IsDryRun(ctx) {
		logger.Info("dry run, skipping frame write",
			"chunk1", fmt.Sprintf("% X", data[:chunkSize]),
			"chunk2", fmt.Sprintf("% X", data[chunkSize:]))
		return nil
	}
	err := bus.WriteBlockData(ctx, regChunk1, data[:chunkSize])
	if err != nil {
		return fmt.Errorf("dimm: chunk 1 write to 0x%02X failed: %w", regChunk1, err)
	}
	sleep(chunk1Delay)
	err = bus.WriteBlockData(ctx, regChunk2, data[chunkSize:])
	if err != nil {
		return fmt.Errorf("dimm: chunk 2 write to 0x%02X failed: %w", regChunk2, err)
	}
	sleep(chunk2Delay)
	return nil
}
