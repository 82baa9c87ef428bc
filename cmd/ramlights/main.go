package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/ramlights/cmd/ramlights/console"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := newApp().RunContext(ctx, args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ramlights"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "set the color of Corsair Dominator Platinum memory modules"
	app.ArgsUsage = "0xRRGGBB"
	app.Description = `Every lighting controller found on the bus is set to the given color.
A bus that cannot be opened is logged as an error and nothing is written;
the success line is then left out, as it is for dry runs and interrupted
scans. Argument and configuration errors exit with status 1, everything else with 0.`
	app.Flags = globalFlags()
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool(flagVerbose) {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	// report errors without the default os.Exit so run owns the exit code
	app.ExitErrHandler = func(_ *cli.Context, err error) {
		if err != nil && err.Error() != "" {
			console.Errorf("%s", err)
		}
	}
	app.Action = setColorAction
	app.Commands = cli.Commands{
		&scanCmd,
		&usbCmd,
		&mcp2221Cmd,
		&configCmd,
	}
	return app
}
