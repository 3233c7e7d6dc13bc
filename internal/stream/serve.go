package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sdrlabs/iqgen/internal/config"
	"github.com/sdrlabs/iqgen/internal/gen"
	"github.com/sdrlabs/iqgen/internal/metrics"
)

// Server repeats a symbol as an endless beacon, fanning the generated
// blocks out to HTTP listeners. Generation is paced to real time by sample
// count; listeners that fall behind lose blocks rather than stalling the
// beacon.
type Server struct {
	cfg         config.Config
	symbol      gen.Symbol
	log         *zap.Logger
	broadcaster *Broadcaster
	runID       string
	started     time.Time
}

// NewServer creates a beacon server for the given symbol. An out-of-range
// block size falls back to the default, same as the file sink path.
func NewServer(cfg config.Config, symbol gen.Symbol, log *zap.Logger) *Server {
	cfg.BlockSize = config.ClampBlockSize(cfg.BlockSize)
	return &Server{
		cfg:         cfg,
		symbol:      symbol,
		log:         log,
		broadcaster: NewBroadcaster(),
		runID:       uuid.NewString(),
	}
}

// Handler returns the HTTP routes: /stream (raw CU8), /api/status and
// /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/stream", NewHTTPHandler(s.broadcaster, s.log))
	r.Get("/api/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run generates the symbol in a loop until the context is cancelled,
// feeding full blocks through the broadcaster. Blocks until done.
func (s *Server) Run(ctx context.Context) error {
	s.started = time.Now()

	source := make(chan []byte, 4)
	go s.broadcaster.Run(ctx, source)

	sink := &paceSink{ctx: ctx, out: source, sampleRate: s.cfg.SampleRate}
	g := gen.New(gen.Config{
		SampleRate:    s.cfg.SampleRate,
		Gain:          s.cfg.Gain,
		NoiseFloorPP:  s.cfg.NoiseFloorPP,
		NoiseSignalPP: s.cfg.NoiseSignalPP,
		BlockSize:     s.cfg.BlockSize,
		Seed:          s.cfg.Seed,
	}, sink)

	s.log.Info("beacon running",
		zap.String("run_id", s.runID),
		zap.Int("tones", len(s.symbol)),
		zap.Int("sample_rate", s.cfg.SampleRate))

	var emitted uint64
	for {
		if err := g.Run(ctx, s.symbol); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if g.Samples() == emitted {
			return errors.New("stream: symbol produced no samples, stopping beacon")
		}
		metrics.RunsTotal.Inc()
		metrics.SamplesTotal.Add(float64(g.Samples() - emitted))
		metrics.OscillatorTables.Set(float64(g.Tables()))
		emitted = g.Samples()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":      s.runID,
		"uptime":      time.Since(s.started).Seconds(),
		"tones":       len(s.symbol),
		"sample_rate": s.cfg.SampleRate,
		"block_size":  s.cfg.BlockSize,
		"gain":        s.cfg.Gain,
		"listeners":   s.broadcaster.ListenerCount(),
	})
}

// paceSink delivers generator output blocks to the broadcast source at the
// real-time rate implied by the sample rate. Each incoming block is copied;
// the generator reuses its block buffer immediately after Write returns.
type paceSink struct {
	ctx        context.Context
	out        chan<- []byte
	sampleRate int
	next       time.Time
}

func (p *paceSink) Write(b []byte) (int, error) {
	block := make([]byte, len(b))
	copy(block, b)

	now := time.Now()
	if p.next.IsZero() || p.next.Before(now) {
		p.next = now
	}
	wait := time.NewTimer(p.next.Sub(now))
	defer wait.Stop()
	select {
	case <-p.ctx.Done():
		return 0, p.ctx.Err()
	case <-wait.C:
	}

	select {
	case <-p.ctx.Done():
		return 0, p.ctx.Err()
	case p.out <- block:
	}
	metrics.BlocksBroadcastTotal.Inc()

	// 2 bytes per I/Q pair
	samples := len(b) / 2
	p.next = p.next.Add(time.Duration(samples) * time.Second / time.Duration(p.sampleRate))
	return len(b), nil
}
