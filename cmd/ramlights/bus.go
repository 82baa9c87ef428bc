package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/ramlights"
	"github.com/mklimuk/ramlights/adapter"
	"github.com/mklimuk/ramlights/config"
	"github.com/mklimuk/ramlights/dimm"
	"github.com/mklimuk/ramlights/i2c"
	"github.com/mklimuk/ramlights/smbus"
)

const (
	flagAdapter   = "adapter"
	flagDevice    = "device"
	flagBusNumber = "bus-number"
	flagSpeed     = "speed"
	flagConfig    = "config"
	flagProbeRate = "probe-rate"
	flagConfirm   = "confirm"
	flagDryRun    = "dry-run"
	flagVerbose   = "verbose"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagAdapter,
			Aliases: []string{"a"},
			Value:   config.AdapterGeneric,
			Usage:   "bus adapter: generic, nanopi or mcp2221",
			EnvVars: []string{"RAMLIGHTS_ADAPTER"},
		},
		&cli.StringFlag{
			Name:    flagDevice,
			Aliases: []string{"d"},
			Value:   config.DefaultDevice,
			Usage:   "i2c device used by the generic adapter",
			EnvVars: []string{"RAMLIGHTS_DEVICE"},
		},
		&cli.IntFlag{
			Name:    flagBusNumber,
			Usage:   "i2c bus number used by the nanopi adapter",
			EnvVars: []string{"RAMLIGHTS_BUS_NUMBER"},
		},
		&cli.IntFlag{
			Name:    flagSpeed,
			Usage:   "i2c clock in kHz used by the generic adapter, 0 keeps the kernel setting",
			EnvVars: []string{"RAMLIGHTS_SPEED"},
		},
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Value:   config.DefaultPath,
			Usage:   "configuration file; ignored when missing",
			EnvVars: []string{"RAMLIGHTS_CONFIG"},
		},
		&cli.Float64Flag{
			Name:    flagProbeRate,
			Usage:   "maximum number of addresses probed per second, 0 for no limit",
			EnvVars: []string{"RAMLIGHTS_PROBE_RATE"},
		},
		&cli.BoolFlag{
			Name:    flagConfirm,
			Usage:   "ask before writing to discovered devices",
			EnvVars: []string{"RAMLIGHTS_CONFIRM"},
		},
		&cli.BoolFlag{
			Name:    flagDryRun,
			Usage:   "identify devices and log the writes without sending them",
			EnvVars: []string{"RAMLIGHTS_DRY_RUN"},
		},
		&cli.BoolFlag{
			Name:    flagVerbose,
			Usage:   "enable verbose logging",
			EnvVars: []string{"RAMLIGHTS_VERBOSE"},
		},
	}
}

// settings merges the configuration file with flags set on the command line
// or in the environment; flags win.
func settings(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, err
	}
	if c.IsSet(flagAdapter) {
		cfg.Adapter = c.String(flagAdapter)
	}
	if c.IsSet(flagDevice) {
		cfg.Device = c.String(flagDevice)
	}
	if c.IsSet(flagBusNumber) {
		cfg.BusNumber = c.Int(flagBusNumber)
	}
	if c.IsSet(flagSpeed) {
		cfg.SpeedKHz = c.Int(flagSpeed)
	}
	if c.IsSet(flagProbeRate) {
		cfg.ProbeRate = c.Float64(flagProbeRate)
	}
	if c.IsSet(flagConfirm) {
		cfg.Confirm = c.Bool(flagConfirm)
	}
	if c.IsSet(flagDryRun) {
		cfg.DryRun = c.Bool(flagDryRun)
	}
	return cfg, cfg.Validate()
}

// openBus is replaced in tests.
var openBus = func(cfg *config.Config) (ramlights.SMBusCloser, error) {
	switch cfg.Adapter {
	case config.AdapterGeneric:
		bus, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, err
		}
		if cfg.SpeedKHz > 0 {
			err = bus.SetSpeed(physic.Frequency(cfg.SpeedKHz) * physic.KiloHertz)
			if err != nil {
				_ = bus.Close()
				return nil, err
			}
		}
		return bus, nil
	case config.AdapterNanoPi:
		bus, err := i2c.NewNanoPiBus(cfg.BusNumber)
		if err != nil {
			return nil, err
		}
		return bus, nil
	case config.AdapterMCP2221:
		mcp := adapter.NewMCP2221()
		if err := mcp.Init(); err != nil {
			return nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		return smbus.NewSession(mcp), nil
	}
	return nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
}

func scannerOpts(cfg *config.Config) []dimm.Opt {
	opts := []dimm.Opt{dimm.WithLogger(slog.Default())}
	if cfg.ProbeRate > 0 {
		opts = append(opts, dimm.WithLimiter(rate.NewLimiter(rate.Limit(cfg.ProbeRate), 1)))
	}
	return opts
}
