package i2c

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/ramlights"
	"github.com/mklimuk/ramlights/dimm"
	"github.com/mklimuk/ramlights/rgb"
)

func TestGenericBus_Transaction(t *testing.T) {
	frame := dimm.BuildFrame(dimm.LEDCount, rgb.MustParse("0x123456")).Checksummed()
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x50, W: []byte{0x43}, R: []byte{0x1A}},
			{Addr: 0x50, W: []byte{0x44}, R: []byte{0x04}},
			{Addr: 0x50, W: append([]byte{0x31, 32}, frame[:32]...)},
			{Addr: 0x50, W: append([]byte{0x32, 6}, frame[32:]...)},
		},
	}
	bus := NewGenericBusFrom(playback)
	s := dimm.NewScanner(
		dimm.WithAddressRange(0x50, 0x50),
		dimm.WithSleep(func(time.Duration) {}),
		dimm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	report := s.Apply(context.Background(), bus, rgb.MustParse("0x123456"))

	require.Len(t, report.Devices, 1)
	assert.Empty(t, report.Failures)
	assert.Equal(t, byte(0x42), frame[37])
	assert.NoError(t, playback.Close())
	assert.NoError(t, bus.Close())
}

func TestGenericBus_ReadByteData(t *testing.T) {
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x58, W: []byte{0x43}, R: []byte{0x1B}},
		},
	}
	bus := NewGenericBusFrom(playback)
	ctx := context.Background()

	_, err := bus.ReadByteData(ctx, 0x43)
	assert.ErrorIs(t, err, ramlights.ErrNoAddress)

	require.NoError(t, bus.SetAddress(ctx, 0x58))
	val, err := bus.ReadByteData(ctx, 0x43)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x1B), val)
	assert.NoError(t, playback.Close())
}

func TestGenericBus_Errors(t *testing.T) {
	playback := &i2ctest.Playback{DontPanic: true}
	bus := NewGenericBusFrom(playback)
	ctx := context.Background()

	assert.ErrorIs(t, bus.SetAddress(ctx, 0x80), ramlights.ErrInvalidAddress)
	require.NoError(t, bus.SetAddress(ctx, 0x58))

	_, err := bus.ReadByteData(ctx, 0x43)
	assert.ErrorContains(t, err, "could not read register 0x43 at 0x58")

	err = bus.WriteBlockData(ctx, 0x31, make([]byte, 33))
	assert.ErrorIs(t, err, ramlights.ErrBlockTooLong)

	err = bus.WriteBlockData(ctx, 0x31, []byte{0x01})
	assert.ErrorContains(t, err, "could not write block to register 0x31 at 0x58")

	err = bus.WriteToAddr(ctx, 0x58, []byte{0x01})
	assert.ErrorContains(t, err, "could not write to i2c bus 58")
}

// clockBus records the clock requested through SetSpeed.
type clockBus struct {
	i2ctest.Playback
	speed physic.Frequency
	err   error
}

func (b *clockBus) SetSpeed(f physic.Frequency) error {
	if b.err != nil {
		return b.err
	}
	b.speed = f
	return nil
}

func TestGenericBus_SetSpeed(t *testing.T) {
	fake := &clockBus{}
	bus := NewGenericBusFrom(fake)
	require.NoError(t, bus.SetSpeed(400*physic.KiloHertz))
	assert.Equal(t, 400*physic.KiloHertz, fake.speed)

	unsupported := errors.New("unsupported")
	bus = NewGenericBusFrom(&clockBus{err: unsupported})
	err := bus.SetSpeed(100 * physic.KiloHertz)
	assert.ErrorIs(t, err, unsupported)
	assert.ErrorContains(t, err, "could not set 100kHz clock")
}
