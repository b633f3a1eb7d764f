package output

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/croswell/arb-scanner/internal/config"
	"github.com/croswell/arb-scanner/pkg/types"
)

// Table renders evaluation results as one console row per token pair.
// Updates are partial: a row is reset at the start of an evaluation and
// completed when the result arrives. Safe for concurrent use.
type Table struct {
	stats *Stats

	mu   sync.Mutex
	rows map[string]types.Row
}

// Stats tracks scanner activity
type Stats struct {
	EvaluationsRun  uint64
	ProfitableFound uint64
	QuoteFailures   uint64
	StartTime       time.Time
}

// NewTable configures the global logger and creates the row table
func NewTable(cfg config.LoggingConfig) *Table {
	switch cfg.Format {
	case "json":
		// Default JSON output
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}

	return &Table{
		stats: &Stats{StartTime: time.Now()},
		rows:  make(map[string]types.Row, 16),
	}
}

// Reset clears the transient fields of a pair's row ahead of a fresh
// evaluation, keeping the token symbols in place
func (t *Table) Reset(pair string) {
	t.mu.Lock()
	row := t.rows[pair]
	row.FromAmount = ""
	row.ToAmount = ""
	row.Difference = ""
	row.Percentage = ""
	row.Log = ""
	row.Style = types.StyleNeutral
	t.rows[pair] = row
	t.mu.Unlock()
}

// Update merges a partial row into the pair's current state and renders it.
// Empty fields in the update leave the stored value untouched.
func (t *Table) Update(pair string, update types.Row) {
	t.mu.Lock()
	row := merge(t.rows[pair], update)
	t.rows[pair] = row
	t.mu.Unlock()

	t.render(pair, row)
}

// Render maps a finished evaluation onto the pair's row
func (t *Table) Render(eval types.Evaluation) {
	pair := eval.FromToken.Symbol + "/" + eval.ToToken.Symbol

	t.mu.Lock()
	t.stats.EvaluationsRun++
	if eval.Profitable {
		t.stats.ProfitableFound++
	}
	if eval.Failed {
		t.stats.QuoteFailures++
	}
	t.mu.Unlock()

	t.Reset(pair)

	if eval.Failed {
		t.Update(pair, types.Row{
			FromToken:  eval.FromToken.Symbol,
			ToToken:    eval.ToToken.Symbol,
			FromAmount: eval.FromAmount.String(),
			Log:        eval.Log,
			Style:      types.StyleError,
		})
		return
	}

	style := types.StyleNeutral
	if eval.Profitable {
		style = types.StyleProfit
	}
	t.Update(pair, types.Row{
		FromToken:  eval.FromToken.Symbol,
		ToToken:    eval.ToToken.Symbol,
		FromAmount: eval.FromAmount.StringFixed(6),
		ToAmount:   eval.ToAmount.StringFixed(6),
		Difference: eval.Difference.StringFixed(6),
		Percentage: eval.Percentage.StringFixed(4) + "%",
		Style:      style,
	})

	t.logRoutes(pair, eval)
}

// Rows returns a snapshot of the current table state
func (t *Table) Rows() map[string]types.Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]types.Row, len(t.rows))
	for k, v := range t.rows {
		out[k] = v
	}
	return out
}

// LogStats logs current scanner statistics
func (t *Table) LogStats() {
	t.mu.Lock()
	snapshot := *t.stats
	t.mu.Unlock()

	elapsed := time.Since(snapshot.StartTime)

	log.Info().
		Uint64("evaluations", snapshot.EvaluationsRun).
		Uint64("profitable", snapshot.ProfitableFound).
		Uint64("quoteFailures", snapshot.QuoteFailures).
		Dur("uptime", elapsed).
		Msg("Scanner stats")
}

// LogError logs an error with its surrounding context
func (t *Table) LogError(err error, context string) {
	log.Error().
		Err(err).
		Str("context", context).
		Msg("Error occurred")
}

// GetStats returns current statistics
func (t *Table) GetStats() *Stats {
	return t.stats
}

func (t *Table) render(pair string, row types.Row) {
	switch row.Style {
	case types.StyleError:
		log.Error().
			Str("pair", pair).
			Str("fromAmount", row.FromAmount).
			Str("log", row.Log).
			Str("style", string(row.Style)).
			Msg("Quote failed")
	case types.StyleProfit:
		log.Info().
			Str("pair", pair).
			Str("fromAmount", row.FromAmount).
			Str("toAmount", row.ToAmount).
			Str("difference", row.Difference).
			Str("percentage", row.Percentage).
			Str("style", string(row.Style)).
			Msg("PROFITABLE ROUND TRIP")
	default:
		log.Info().
			Str("pair", pair).
			Str("fromAmount", row.FromAmount).
			Str("toAmount", row.ToAmount).
			Str("difference", row.Difference).
			Str("percentage", row.Percentage).
			Str("style", string(row.Style)).
			Msg("Round trip checked")
	}
}

func (t *Table) logRoutes(pair string, eval types.Evaluation) {
	log.Debug().
		Str("pair", pair).
		Str("outbound", pathString(eval.OutboundRoute)).
		Str("return", pathString(eval.ReturnRoute)).
		Msg("Routes resolved")
}

// pathString builds a human-readable protocol chain for one leg
func pathString(r types.Route) string {
	if len(r) == 0 {
		return ""
	}
	names := make([]string, len(r))
	for i, step := range r {
		names[i] = step.Name
	}
	return strings.Join(names, " -> ")
}

func merge(base, update types.Row) types.Row {
	if update.FromToken != "" {
		base.FromToken = update.FromToken
	}
	if update.ToToken != "" {
		base.ToToken = update.ToToken
	}
	if update.FromAmount != "" {
		base.FromAmount = update.FromAmount
	}
	if update.ToAmount != "" {
		base.ToAmount = update.ToAmount
	}
	if update.Difference != "" {
		base.Difference = update.Difference
	}
	if update.Percentage != "" {
		base.Percentage = update.Percentage
	}
	if update.Log != "" {
		base.Log = update.Log
	}
	if update.Style != "" {
		base.Style = update.Style
	}
	return base
}
