package main

import (
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/ramlights/cmd/ramlights/console"
	"github.com/mklimuk/ramlights/config"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "inspect or store the effective settings",
	Subcommands: cli.Commands{
		{
			Name:  "show",
			Usage: "print the settings merged from the file, the environment and flags",
			Action: func(c *cli.Context) error {
				cfg, err := settings(c)
				if err != nil {
					return console.Exit(1, "configuration error: %s", console.Red(err))
				}
				enc := yaml.NewEncoder(console.Writer())
				defer func() {
					_ = enc.Close()
				}()
				err = enc.Encode(cfg)
				if err != nil {
					return console.Exit(1, "encoding error: %s", console.Red(err))
				}
				return nil
			},
		},
		{
			Name:  "save",
			Usage: "write the merged settings to the configuration file",
			Action: func(c *cli.Context) error {
				cfg, err := settings(c)
				if err != nil {
					return console.Exit(1, "configuration error: %s", console.Red(err))
				}
				path := c.String(flagConfig)
				err = config.Save(path, cfg)
				if err != nil {
					return console.Exit(1, "could not save %s: %s", path, console.Red(err))
				}
				console.Infof("settings saved to %s", path)
				return nil
			},
		},
	},
}
