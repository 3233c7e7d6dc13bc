// Command iqgen synthesizes a complex baseband (I/Q) sample stream from a
// symbolic tone script and writes it as interleaved unsigned 8-bit samples
// to a file, stdout, or an HTTP beacon stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sdrlabs/iqgen/internal/config"
	"github.com/sdrlabs/iqgen/internal/gen"
	"github.com/sdrlabs/iqgen/internal/level"
	"github.com/sdrlabs/iqgen/internal/monitor"
	"github.com/sdrlabs/iqgen/internal/script"
	"github.com/sdrlabs/iqgen/internal/stream"
)

func usage() {
	fmt.Fprintf(os.Stderr, `iqgen, a symbolic I/Q waveform generator

Usage: iqgen [options] [output]

  -s rate       sample rate in Hz (default %d, k/M/G suffixes ok)
  -b size       output block size in bytes (default %d)
  -g level      signal gain, dBFS when <= 0, multiplier otherwise
  -n level      noise floor, dBFS when < 0, multiplier otherwise, 0 is off
  -N level      noise on signal, same rule as -n
  -S seed       random seed for reproducible output (default 1)
  -r path       read tone script from file ('-' for stdin)
  -c text       parse tone script from the argument
  -serve addr   serve the symbol as an endless beacon over HTTP
  -monitor      play the generated baseband on the local audio device

Output goes to the named file, or to stdout for '-' (the default).
`, config.DefaultSampleRate, config.DefaultBlockSize)
	os.Exit(1)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	var (
		rateArg    = flag.String("s", "", "sample rate in Hz")
		blockArg   = flag.String("b", "", "output block size in bytes")
		gainArg    = flag.String("g", "", "signal gain, dBFS or multiplier")
		noiseArg   = flag.String("n", "", "noise floor, dBFS or multiplier")
		signalArg  = flag.String("N", "", "noise on signal, dBFS or multiplier")
		seedArg    = flag.Uint64("S", cfg.Seed, "random seed")
		fileArg    = flag.String("r", "", "tone script file, '-' for stdin")
		codeArg    = flag.String("c", "", "tone script text")
		serveArg   = flag.String("serve", cfg.ServeAddr, "beacon listen address")
		monitorArg = flag.Bool("monitor", false, "play baseband on audio device")
	)
	flag.Usage = usage
	flag.Parse()

	cfg.Seed = *seedArg
	cfg.ServeAddr = *serveArg
	if *rateArg != "" {
		cfg.SampleRate = int(parseNumber(logger, "-s", *rateArg))
	}
	if *blockArg != "" {
		cfg.BlockSize = int(parseNumber(logger, "-b", *blockArg))
	}
	if *gainArg != "" {
		cfg.Gain = level.Gain(parseNumber(logger, "-g", *gainArg)).Linear()
	}
	if *noiseArg != "" {
		cfg.NoiseFloorPP = level.Noise(parseNumber(logger, "-n", *noiseArg)).PeakToPeak()
	}
	if *signalArg != "" {
		cfg.NoiseSignalPP = level.Noise(parseNumber(logger, "-N", *signalArg)).PeakToPeak()
	}
	cfg.BlockSize = config.ClampBlockSize(cfg.BlockSize)

	symbol := loadSymbol(logger, *codeArg, *fileArg)
	if len(symbol) == 0 {
		logger.Warn("empty tone script, nothing to generate")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.ServeAddr != "" {
		if len(symbol) == 0 {
			logger.Fatal("beacon mode needs a non-empty tone script")
		}
		serve(ctx, logger, cfg, symbol)
		return
	}

	outPath := "-"
	switch flag.NArg() {
	case 0:
	case 1:
		outPath = flag.Arg(0)
	default:
		fmt.Fprintf(os.Stderr, "Extra arguments? %q...\n", flag.Arg(1))
		usage()
	}

	sink, closeSink := openSink(logger, outPath, *monitorArg, cfg.SampleRate)
	defer closeSink()

	g := gen.New(gen.Config{
		SampleRate:    cfg.SampleRate,
		Gain:          cfg.Gain,
		NoiseFloorPP:  cfg.NoiseFloorPP,
		NoiseSignalPP: cfg.NoiseSignalPP,
		BlockSize:     cfg.BlockSize,
		Seed:          cfg.Seed,
	}, sink)

	start := time.Now()
	err := g.Run(ctx, symbol)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("signal caught, exiting", zap.Uint64("samples", g.Samples()))
			return
		}
		logger.Fatal("generation failed", zap.Error(err))
	}
	logger.Info("generation complete",
		zap.Uint64("samples", g.Samples()),
		zap.Int("oscillator_tables", g.Tables()),
		zap.Duration("elapsed", elapsed))
}

// loadSymbol parses the tone script from -c, then -r, then stdin.
func loadSymbol(logger *zap.Logger, code, path string) gen.Symbol {
	var (
		symbol gen.Symbol
		err    error
	)
	switch {
	case code != "":
		symbol, err = script.Parse(code)
	case path != "":
		symbol, err = script.ParseFile(path)
	default:
		logger.Info("reading tone script from stdin")
		symbol, err = script.ParseFile("-")
	}
	if err != nil {
		logger.Fatal("parse tone script", zap.Error(err))
	}
	return symbol
}

// openSink opens the output target, optionally teeing into the audio
// monitor. The returned close function flushes and releases everything.
func openSink(logger *zap.Logger, path string, monitorOn bool, sampleRate int) (io.Writer, func()) {
	var (
		sink    io.Writer
		closers []func()
	)
	if path == "" || path == "-" {
		sink = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			logger.Fatal("open output", zap.String("path", path), zap.Error(err))
		}
		sink = f
		closers = append(closers, func() {
			if err := f.Close(); err != nil {
				logger.Error("close output", zap.Error(err))
			}
		})
	}

	if monitorOn {
		m, err := monitor.New(sampleRate)
		if err != nil {
			logger.Fatal("open audio monitor", zap.Error(err))
		}
		sink = io.MultiWriter(sink, m)
		closers = append(closers, func() { m.Close() })
	}

	return sink, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// serve runs the HTTP beacon until the context is cancelled.
func serve(ctx context.Context, logger *zap.Logger, cfg config.Config, symbol gen.Symbol) {
	srv := stream.NewServer(cfg, symbol, logger)

	httpSrv := &http.Server{
		Addr:        cfg.ServeAddr,
		Handler:     srv.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("beacon listening", zap.String("addr", cfg.ServeAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("beacon failed", zap.Error(err))
	}
}

// parseNumber parses a flag value with optional k/M/G suffixes.
func parseNumber(logger *zap.Logger, name, s string) float64 {
	v, err := script.ParseNumber(s)
	if err != nil {
		logger.Fatal("invalid flag value", zap.String("flag", name), zap.String("value", s))
	}
	return v
}
