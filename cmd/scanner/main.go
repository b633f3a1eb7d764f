package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/croswell/arb-scanner/internal/arbitrage"
	"github.com/croswell/arb-scanner/internal/config"
	"github.com/croswell/arb-scanner/internal/metrics"
	"github.com/croswell/arb-scanner/internal/oneinch"
	"github.com/croswell/arb-scanner/internal/output"
	"github.com/croswell/arb-scanner/internal/route"
	"github.com/croswell/arb-scanner/pkg/types"
)

// pair is one resolved token pair to sweep
type pair struct {
	from types.Token
	to   types.Token
}

// Scanner is the main round-trip evaluation engine
type Scanner struct {
	evaluator *arbitrage.Evaluator
	table     *output.Table
	pairs     []pair
	cfg       *config.Config
}

// NewScanner creates a scanner from validated configuration
func NewScanner(cfg *config.Config) (*Scanner, error) {
	table := output.NewTable(cfg.Logging)

	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	pairs := make([]pair, 0, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		fromSym, toSym, err := config.SplitPair(p)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{from: registry[fromSym], to: registry[toSym]})
	}

	var norm *route.Normalizer
	if cfg.Normalize.NativeAddress != "" && cfg.Normalize.WrappedAddress != "" {
		norm = &route.Normalizer{
			Native:  common.HexToAddress(cfg.Normalize.NativeAddress),
			Wrapped: common.HexToAddress(cfg.Normalize.WrappedAddress),
		}
	}

	quoter := oneinch.NewClient(cfg.Provider)
	evaluator := arbitrage.NewEvaluator(quoter, norm, cfg.Trade)

	return &Scanner{
		evaluator: evaluator,
		table:     table,
		pairs:     pairs,
		cfg:       cfg,
	}, nil
}

// Start begins the evaluation loop
func (s *Scanner) Start(ctx context.Context) error {
	log.Info().
		Str("network", s.cfg.Provider.Network).
		Int("pairs", len(s.pairs)).
		Str("loan", s.cfg.Trade.LoanAmount.String()).
		Str("margin", s.cfg.Trade.MarginAmount.String()).
		Msg("Starting arbitrage scanner")

	ticker := time.NewTicker(s.cfg.Scanner.PollInterval)
	defer ticker.Stop()

	// Stats ticker (every 30 seconds)
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	// First sweep immediately, then on the poll interval
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down scanner...")
			return ctx.Err()

		case <-statsTicker.C:
			s.table.LogStats()

		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep evaluates every configured pair once. Evaluations share no state,
// so each pair runs on its own goroutine.
func (s *Scanner) sweep(ctx context.Context) {
	start := time.Now()

	var wg sync.WaitGroup
	for _, p := range s.pairs {
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			eval := s.evaluator.Evaluate(ctx, p.from, p.to)
			s.table.Render(eval)
		}(p)
	}
	wg.Wait()

	log.Debug().
		Int("pairs", len(s.pairs)).
		Dur("duration", time.Since(start)).
		Msg("Sweep complete")
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create scanner
	scanner, err := NewScanner(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scanner")
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metrics.Serve(ctx, cfg.Metrics.Addr)
	}

	// Start the scanner
	if err := scanner.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Scanner error")
	}

	log.Info().Msg("Arbitrage scanner stopped")
}
