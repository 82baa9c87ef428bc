package dimm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/mklimuk/ramlights"
	"github.com/mklimuk/ramlights/rgb"
)

type Opts struct {
	Logger       *slog.Logger
	Sleep        func(time.Duration)
	Limiter      *rate.Limiter
	IdentifyOnly bool
	MinAddress   byte
	MaxAddress   byte
}

type Opt func(*Opts)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// WithSleep replaces the function used for the controller settle times.
func WithSleep(sleep func(time.Duration)) Opt {
	return func(o *Opts) {
		o.Sleep = sleep
	}
}

// WithLimiter paces address probes. Nil means unlimited.
func WithLimiter(limiter *rate.Limiter) Opt {
	return func(o *Opts) {
		o.Limiter = limiter
	}
}

// WithIdentifyOnly makes the scanner report matches without writing frames.
func WithIdentifyOnly() Opt {
	return func(o *Opts) {
		o.IdentifyOnly = true
	}
}

// WithAddressRange narrows the scan. Bounds are clamped to MinAddress..MaxAddress.
func WithAddressRange(lo, hi byte) Opt {
	return func(o *Opts) {
		o.MinAddress = max(lo, MinAddress)
		o.MaxAddress = min(hi, MaxAddress)
	}
}

func newOpts(opts []Opt) Opts {
	config := Opts{
		Sleep:      time.Sleep,
		MinAddress: MinAddress,
		MaxAddress: MaxAddress,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Sleep == nil {
		config.Sleep = time.Sleep
	}
	return config
}

// Report summarizes a finished scan.
type Report struct {
	Probed   int
	Devices  []Device
	Failures []error
	// Err is set when the scan stopped before the end of the range.
	Err error
}

// Scanner walks the SMBus address range looking for lighting controllers.
type Scanner struct {
	config Opts
}

func NewScanner(opts ...Opt) *Scanner {
	return &Scanner{config: newOpts(opts)}
}

// Apply fills a frame with c and sends it to every controller found on bus.
func (s *Scanner) Apply(ctx context.Context, bus ramlights.SMBus, c rgb.Color) Report {
	return s.Scan(ctx, bus, BuildFrame(LEDCount, c), nil)
}

// Scan probes every address in range in ascending order. Each identified
// controller is passed to onMatch (if not nil) and then receives frame.
// Devices that fail to respond or to identify are skipped; write failures are
// collected in the report and do not stop the scan.
func (s *Scanner) Scan(ctx context.Context, bus ramlights.SMBus, frame Frame, onMatch func(Device)) Report {
	var report Report
	log := s.config.Logger
	// int loop variable, a byte would wrap past 0xFF
	for addr := int(s.config.MinAddress); addr <= int(s.config.MaxAddress); addr++ {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return report
		}
		if s.config.Limiter != nil {
			if err := s.config.Limiter.Wait(ctx); err != nil {
				report.Err = err
				return report
			}
		}
		report.Probed++
		ctrl := &Controller{transport: bus, address: byte(addr), config: s.config}
		dev, err := ctrl.Identify(ctx)
		if err != nil {
			if errors.Is(err, ErrNotIdentified) {
				log.Debug("signature mismatch", "addr", FormatByte(byte(addr)), "error", err)
			} else {
				log.Debug("no device", "addr", FormatByte(byte(addr)), "error", err)
			}
			continue
		}
		log.Info("found device", "name", dev.Name, "addr", FormatByte(dev.Address))
		report.Devices = append(report.Devices, dev)
		if onMatch != nil {
			onMatch(dev)
		}
		if s.config.IdentifyOnly {
			continue
		}
		err = ctrl.Apply(ctx, frame)
		if err != nil {
			log.Warn("could not apply colors", "name", dev.Name, "addr", FormatByte(dev.Address), "error", err)
			report.Failures = append(report.Failures, err)
		}
	}
	return report
}
