package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/ramlights"
	"github.com/mklimuk/ramlights/cmd/ramlights/console"
	"github.com/mklimuk/ramlights/config"
)

type blockWrite struct {
	addr     byte
	register byte
	data     []byte
}

// fakeBus answers register reads for the devices it knows about.
type fakeBus struct {
	devices map[byte]map[byte]byte
	addr    byte
	writes  []blockWrite
	closed  bool
	onWrite func()
}

func newFakeBus(addrs ...byte) *fakeBus {
	b := &fakeBus{devices: map[byte]map[byte]byte{}}
	for _, a := range addrs {
		b.devices[a] = map[byte]byte{0x43: 0x1B, 0x44: 0x04}
	}
	return b
}

func (b *fakeBus) SetAddress(ctx context.Context, address byte) error {
	b.addr = address
	return nil
}

func (b *fakeBus) ReadByteData(ctx context.Context, register byte) (byte, error) {
	regs, ok := b.devices[b.addr]
	if !ok {
		return 0, errors.New("nack")
	}
	return regs[register], nil
}

func (b *fakeBus) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	b.writes = append(b.writes, blockWrite{addr: b.addr, register: register, data: append([]byte(nil), data...)})
	if b.onWrite != nil {
		b.onWrite()
	}
	return nil
}

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

type harness struct {
	bus     *fakeBus
	opened  *config.Config
	openErr error
	answer  bool
	asked   int
	out     bytes.Buffer
	errOut  bytes.Buffer
}

func setup(t *testing.T, bus *fakeBus) *harness {
	t.Helper()
	color.NoColor = true
	h := &harness{bus: bus}
	prevOpen, prevConfirm := openBus, confirm
	openBus = func(cfg *config.Config) (ramlights.SMBusCloser, error) {
		h.opened = cfg
		if h.openErr != nil {
			return nil, h.openErr
		}
		return h.bus, nil
	}
	confirm = func(question string) (bool, error) {
		h.asked++
		return h.answer, nil
	}
	console.SetOutput(&h.out, &h.errOut)
	t.Cleanup(func() {
		openBus, confirm = prevOpen, prevConfirm
		console.SetOutput(os.Stdout, os.Stderr)
	})
	return h
}

func args(t *testing.T, rest ...string) []string {
	cfg := filepath.Join(t.TempDir(), "ramlights.yaml")
	return append([]string{"ramlights", "--config", cfg}, rest...)
}

func TestRun_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no color", args: nil},
		{name: "two colors", args: []string{"0x123456", "0x654321"}},
		{name: "short color", args: []string{"0x12345"}},
		{name: "missing prefix", args: []string{"12345678"}},
		{name: "not hex", args: []string{"0x12345G"}},
		{name: "unknown adapter", args: []string{"--adapter", "ftdi", "0x123456"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setup(t, newFakeBus(0x50))
			assert.Equal(t, 1, run(args(t, tt.args...)))
			assert.Nil(t, h.opened)
			assert.Empty(t, h.bus.writes)
		})
	}
}

func TestRun_SetColor(t *testing.T) {
	h := setup(t, newFakeBus(0x50))
	assert.Equal(t, 0, run(args(t, "0x123456")))

	require.Len(t, h.bus.writes, 2)
	assert.Equal(t, byte(0x31), h.bus.writes[0].register)
	assert.Len(t, h.bus.writes[0].data, 32)
	assert.Equal(t, []byte{0x0C, 0x12, 0x34, 0x56}, h.bus.writes[0].data[:4])
	assert.Equal(t, byte(0x32), h.bus.writes[1].register)
	assert.Len(t, h.bus.writes[1].data, 6)
	assert.Equal(t, byte(0x42), h.bus.writes[1].data[5])
	assert.True(t, h.bus.closed)
	assert.Contains(t, h.out.String(), "Found 'Corsair Dominator Platinum' at address 0x50")
	assert.Contains(t, h.out.String(), "Color set to 0x123456 on all detected devices.")
	assert.Zero(t, h.asked)
}

func TestRun_NoDevices(t *testing.T) {
	h := setup(t, newFakeBus())
	assert.Equal(t, 0, run(args(t, "0x000000")))
	assert.Empty(t, h.bus.writes)
	assert.Contains(t, h.out.String(), "no Corsair Dominator Platinum controllers found")
	assert.Contains(t, h.out.String(), "Color set to 0x000000 on all detected devices.")
}

func TestRun_BusOpenFailure(t *testing.T) {
	h := setup(t, newFakeBus(0x50))
	h.openErr = errors.New("no such device")
	assert.Equal(t, 0, run(args(t, "0x123456")))
	assert.NotNil(t, h.opened)
	assert.NotContains(t, h.out.String(), "Color set")
}

func TestRun_DryRun(t *testing.T) {
	h := setup(t, newFakeBus(0x50))
	assert.Equal(t, 0, run(args(t, "--dry-run", "0x123456")))
	assert.Empty(t, h.bus.writes)
	assert.True(t, h.opened.DryRun)
	assert.Contains(t, h.out.String(), "Found 'Corsair Dominator Platinum' at address 0x50")
	assert.Contains(t, h.out.String(), "dry run, 0x123456 would be set on 1 detected devices")
	assert.NotContains(t, h.out.String(), "Color set")
}

func TestRun_Interrupted(t *testing.T) {
	h := setup(t, newFakeBus(0x50, 0x52))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.bus.onWrite = func() {
		if len(h.bus.writes) == 2 {
			cancel()
		}
	}

	require.NoError(t, newApp().RunContext(ctx, args(t, "0x123456")))
	require.Len(t, h.bus.writes, 2)
	assert.Equal(t, byte(0x50), h.bus.writes[1].addr)
	assert.Contains(t, h.errOut.String(), "scan interrupted after")
	assert.Contains(t, h.errOut.String(), "context canceled")
	assert.NotContains(t, h.out.String(), "Color set")
}

func TestNewApp_Description(t *testing.T) {
	app := newApp()
	assert.Contains(t, app.Description, "cannot be opened is logged as an error and nothing is written")
	assert.Contains(t, app.Description, "the success line is then left out")
}

func TestRun_Confirm(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		h := setup(t, newFakeBus(0x50, 0x52))
		assert.Equal(t, 0, run(args(t, "--confirm", "0xFF0000")))
		assert.Equal(t, 1, h.asked)
		assert.Empty(t, h.bus.writes)
		assert.Contains(t, h.out.String(), "aborted")
	})
	t.Run("accepted", func(t *testing.T) {
		h := setup(t, newFakeBus(0x50, 0x52))
		h.answer = true
		assert.Equal(t, 0, run(args(t, "--confirm", "0xFF0000")))
		assert.Equal(t, 1, h.asked)
		require.Len(t, h.bus.writes, 4)
		assert.Equal(t, byte(0x50), h.bus.writes[0].addr)
		assert.Equal(t, byte(0x50), h.bus.writes[1].addr)
		assert.Equal(t, byte(0x52), h.bus.writes[2].addr)
		assert.Equal(t, byte(0x09), h.bus.writes[3].data[5])
		assert.Contains(t, h.out.String(), "Color set to 0xFF0000 on all detected devices.")
	})
}

func TestRun_ConfigFile(t *testing.T) {
	h := setup(t, newFakeBus())
	path := filepath.Join(t.TempDir(), "ramlights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adapter: nanopi\nbus_number: 1\nprobe_rate: 1000\n"), 0644))

	assert.Equal(t, 0, run([]string{"ramlights", "-c", path, "0x000000"}))
	require.NotNil(t, h.opened)
	assert.Equal(t, config.AdapterNanoPi, h.opened.Adapter)
	assert.Equal(t, 1, h.opened.BusNumber)
	assert.Equal(t, 1000.0, h.opened.ProbeRate)

	h.opened = nil
	assert.Equal(t, 0, run([]string{"ramlights", "-c", path, "-a", "mcp2221", "--bus-number", "3", "0x000000"}))
	require.NotNil(t, h.opened)
	assert.Equal(t, config.AdapterMCP2221, h.opened.Adapter)
	assert.Equal(t, 3, h.opened.BusNumber)

	h.opened = nil
	assert.Equal(t, 0, run([]string{"ramlights", "-c", path, "-a", "generic", "--speed", "400", "0x000000"}))
	require.NotNil(t, h.opened)
	assert.Equal(t, 400, h.opened.SpeedKHz)
}

func TestRun_Config(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramlights.yaml")

	t.Run("save", func(t *testing.T) {
		h := setup(t, newFakeBus())
		assert.Equal(t, 0, run([]string{"ramlights", "-c", path, "-a", "mcp2221", "--probe-rate", "20", "--speed", "100", "config", "save"}))
		assert.Nil(t, h.opened)
		assert.Contains(t, h.out.String(), "settings saved to "+path)
		saved, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, &config.Config{
			Adapter:   config.AdapterMCP2221,
			Device:    config.DefaultDevice,
			ProbeRate: 20,
			SpeedKHz:  100,
		}, saved)
	})
	t.Run("show", func(t *testing.T) {
		h := setup(t, newFakeBus())
		assert.Equal(t, 0, run([]string{"ramlights", "-c", path, "--confirm", "config", "show"}))
		var shown config.Config
		require.NoError(t, yaml.Unmarshal(h.out.Bytes(), &shown))
		assert.Equal(t, config.AdapterMCP2221, shown.Adapter)
		assert.Equal(t, 100, shown.SpeedKHz)
		assert.True(t, shown.Confirm)
	})
	t.Run("invalid", func(t *testing.T) {
		h := setup(t, newFakeBus())
		assert.Equal(t, 1, run([]string{"ramlights", "-c", path, "--speed", "-1", "config", "save"}))
		assert.Contains(t, h.errOut.String(), "negative bus speed")
	})
}

func TestRun_Scan(t *testing.T) {
	h := setup(t, newFakeBus(0x50))
	assert.Equal(t, 0, run(args(t, "scan")))
	assert.Empty(t, h.bus.writes)
	assert.True(t, h.bus.closed)
	var res scanResult
	require.NoError(t, yaml.Unmarshal(h.out.Bytes(), &res))
	assert.Equal(t, scanResult{
		Probed: 117,
		Devices: []scanEntry{
			{Name: "Corsair Dominator Platinum", Address: "0x50", Revision: "0x1B", Model: "0x04"},
		},
	}, res)
}

func TestDetectAdapter(t *testing.T) {
	name, ok := detectAdapter(0x04D8, 0x00DD)
	assert.True(t, ok)
	assert.Equal(t, "MCP2221", name)
	_, ok = detectAdapter(0x04D8, 0x000A)
	assert.False(t, ok)
}
