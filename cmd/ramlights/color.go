package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/ramlights"
	"github.com/mklimuk/ramlights/busctx"
	"github.com/mklimuk/ramlights/cmd/ramlights/console"
	"github.com/mklimuk/ramlights/config"
	"github.com/mklimuk/ramlights/dimm"
	"github.com/mklimuk/ramlights/rgb"
)

var errAborted = errors.New("aborted")

// confirm is replaced in tests.
var confirm = console.Confirm

// setColorAction validates its single argument before touching the bus. Once
// the bus is open the command always succeeds: missing devices and write
// failures are reported but do not change the exit code.
func setColorAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return console.Exit(1, "usage: %s [flags] 0xRRGGBB", c.App.Name)
	}
	color, err := rgb.Parse(c.Args().First())
	if err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	cfg, err := settings(c)
	if err != nil {
		return console.Exit(1, "configuration error: %s", console.Red(err))
	}
	ctx := busctx.SetVerbose(c.Context, c.Bool(flagVerbose))
	ctx = busctx.SetDryRun(ctx, cfg.DryRun)
	if cfg.DryRun {
		console.Infof("dry run, block writes are only logged")
	}

	bus, err := openBus(cfg)
	if err != nil {
		slog.Error("could not open bus", "adapter", cfg.Adapter, "error", err)
		return nil
	}
	defer func() {
		_ = bus.Close()
	}()

	var report dimm.Report
	if cfg.Confirm {
		report = confirmAndApply(ctx, bus, cfg, color)
	} else {
		frame := dimm.BuildFrame(dimm.LEDCount, color)
		report = dimm.NewScanner(scannerOpts(cfg)...).Scan(ctx, bus, frame, printDevice)
	}
	printReport(report, c.Args().First(), cfg.DryRun)
	return nil
}

func printDevice(dev dimm.Device) {
	console.PInfof(console.PictoMemory, "Found '%s' at address %s", dev.Name, dimm.FormatByte(dev.Address))
}

// confirmAndApply identifies controllers first and writes only after the
// user agreed.
func confirmAndApply(ctx context.Context, bus ramlights.SMBus, cfg *config.Config, color rgb.Color) dimm.Report {
	opts := append(scannerOpts(cfg), dimm.WithIdentifyOnly())
	report := dimm.NewScanner(opts...).Scan(ctx, bus, nil, printDevice)
	if report.Err != nil || len(report.Devices) == 0 {
		return report
	}
	ok, err := confirm("write " + color.String() + " to these devices?")
	if err != nil || !ok {
		report.Err = errAborted
		return report
	}
	frame := dimm.BuildFrame(dimm.LEDCount, color)
	for _, dev := range report.Devices {
		ctrl := dimm.NewController(bus, dev.Address, scannerOpts(cfg)...)
		// reselect the address, the bus still points at the last probed one
		if _, err := ctrl.Identify(ctx); err != nil {
			report.Failures = append(report.Failures, err)
			continue
		}
		if err := ctrl.Apply(ctx, frame); err != nil {
			slog.Warn("could not apply colors", "name", dev.Name, "addr", dimm.FormatByte(dev.Address), "error", err)
			report.Failures = append(report.Failures, err)
		}
	}
	return report
}

// printReport only claims success when frames were actually sent: an aborted
// or interrupted scan and a dry run end with their own summary.
func printReport(report dimm.Report, color string, dryRun bool) {
	if errors.Is(report.Err, errAborted) {
		console.PInfof(console.PictoStop, "aborted, no colors written")
		return
	}
	for _, err := range report.Failures {
		console.Warnf("%s", err)
	}
	if report.Err != nil {
		console.Warnf("scan interrupted after %d addresses: %s", report.Probed, report.Err)
		return
	}
	if len(report.Devices) == 0 {
		console.PInfof(console.PictoGhost, "no %s controllers found", dimm.DeviceName)
	}
	if dryRun {
		console.Infof("dry run, %s would be set on %d detected devices", color, len(report.Devices))
		return
	}
	console.PInfof(console.PictoBulb, "Color set to %s on all detected devices.", color)
}
