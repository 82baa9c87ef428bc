package main

import (
	"log/slog"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/ramlights/busctx"
	"github.com/mklimuk/ramlights/cmd/ramlights/console"
	"github.com/mklimuk/ramlights/dimm"
)

type scanEntry struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Revision string `yaml:"revision"`
	Model    string `yaml:"model"`
}

type scanResult struct {
	Probed  int         `yaml:"probed"`
	Devices []scanEntry `yaml:"devices"`
}

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "list lighting controllers without writing to them",
	Action: func(c *cli.Context) error {
		cfg, err := settings(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		ctx := busctx.SetVerbose(c.Context, c.Bool(flagVerbose))
		bus, err := openBus(cfg)
		if err != nil {
			slog.Error("could not open bus", "adapter", cfg.Adapter, "error", err)
			return nil
		}
		defer func() {
			_ = bus.Close()
		}()
		opts := append(scannerOpts(cfg), dimm.WithIdentifyOnly())
		report := dimm.NewScanner(opts...).Scan(ctx, bus, nil, nil)
		if report.Err != nil {
			console.Warnf("scan interrupted after %d addresses: %s", report.Probed, report.Err)
		}
		enc := yaml.NewEncoder(console.Writer())
		defer func() {
			_ = enc.Close()
		}()
		err = enc.Encode(toScanResult(report))
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}

func toScanResult(report dimm.Report) scanResult {
	res := scanResult{Probed: report.Probed, Devices: []scanEntry{}}
	for _, dev := range report.Devices {
		res.Devices = append(res.Devices, scanEntry{
			Name:     dev.Name,
			Address:  dimm.FormatByte(dev.Address),
			Revision: dimm.FormatByte(dev.Revision),
			Model:    dimm.FormatByte(dev.Model),
		})
	}
	return res
}
