package arbitrage

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/croswell/arb-scanner/internal/config"
	"github.com/croswell/arb-scanner/internal/metrics"
	"github.com/croswell/arb-scanner/internal/oneinch"
	"github.com/croswell/arb-scanner/internal/route"
	"github.com/croswell/arb-scanner/pkg/types"
)

// Quoter issues one swap quote. Implemented by oneinch.Client.
type Quoter interface {
	Quote(ctx context.Context, from, to common.Address, amount *big.Int) (*oneinch.Quote, error)
}

// Evaluator checks whether a round-trip swap of a token pair clears the
// configured margin
type Evaluator struct {
	quoter Quoter
	norm   *route.Normalizer
	loan   decimal.Decimal
	margin decimal.Decimal
}

// NewEvaluator creates an evaluator over the given quoter
func NewEvaluator(quoter Quoter, norm *route.Normalizer, trade config.TradeConfig) *Evaluator {
	return &Evaluator{
		quoter: quoter,
		norm:   norm,
		loan:   trade.LoanAmount,
		margin: trade.MarginAmount,
	}
}

// Evaluate runs the two-leg round trip from -> to -> from and decides
// profitability. It always returns a well-formed Evaluation; quote failures
// surface as Profitable=false, nil routes and a log string. The loan amount
// must be positive, enforced at config load.
func (e *Evaluator) Evaluate(ctx context.Context, from, to types.Token) types.Evaluation {
	metrics.Evaluations.Inc()

	baseAmount := smallestUnit(e.loan, from.Decimals)
	threshold := smallestUnit(e.loan.Add(e.margin), from.Decimals)

	leg1, err := e.quoter.Quote(ctx, from.Address, to.Address, baseAmount)
	if err != nil {
		return e.failure(from, to, err)
	}

	// Leg 2 is fed leg 1's raw integer output, never a decimal round trip
	leg2, err := e.quoter.Quote(ctx, to.Address, from.Address, leg1.ToAmount)
	if err != nil {
		return e.failure(from, to, err)
	}

	// Both sides are denominated in the source token. The provider's echoed
	// decimals are authoritative for leg 2's output scale; rescale the
	// threshold if they disagree with the registry so the integers are
	// never compared across scales.
	scaledThreshold := rescale(threshold, from.Decimals, leg2.ToToken.Decimals)
	profitable := scaledThreshold.Cmp(leg2.ToAmount) < 0
	if profitable {
		metrics.ProfitableFound.Inc()
	}

	// Display scalars only; the decision above stays on integers
	fromAmount := decimal.NewFromBigInt(baseAmount, -int32(from.Decimals))
	toAmount := decimal.NewFromBigInt(leg2.ToAmount, -int32(leg2.ToToken.Decimals))
	difference := toAmount.Sub(fromAmount)
	percentage := difference.Div(fromAmount).Mul(decimal.NewFromInt(100))

	outbound := e.norm.Apply(route.Extract(leg1.Protocols))
	ret := e.norm.Apply(route.Extract(leg2.Protocols))

	log.Debug().
		Str("pair", from.Symbol+"/"+to.Symbol).
		Str("threshold", scaledThreshold.String()).
		Str("returned", leg2.ToAmount.String()).
		Bool("profitable", profitable).
		Msg("Round trip evaluated")

	return types.Evaluation{
		FromToken:     from,
		ToToken:       to,
		Profitable:    profitable,
		OutboundRoute: outbound,
		ReturnRoute:   ret,
		FromAmount:    fromAmount,
		ToAmount:      toAmount,
		Difference:    difference,
		Percentage:    percentage,
	}
}

func (e *Evaluator) failure(from, to types.Token, err error) types.Evaluation {
	metrics.QuoteErrors.Inc()

	logText := err.Error()
	var qe *oneinch.QuoteError
	if errors.As(err, &qe) {
		logText = qe.Detail()
	}

	log.Debug().
		Str("pair", from.Symbol+"/"+to.Symbol).
		Str("detail", logText).
		Msg("Round trip aborted")

	return types.Evaluation{
		FromToken:  from,
		ToToken:    to,
		Profitable: false,
		Failed:     true,
		FromAmount: e.loan,
		Log:        logText,
	}
}

// smallestUnit converts a human-readable amount into the token's
// indivisible base unit
func smallestUnit(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).BigInt()
}

// rescale moves v from one decimal precision to another
func rescale(v *big.Int, from, to uint8) *big.Int {
	if from == to {
		return v
	}
	if to > from {
		factor := pow10(int(to - from))
		return new(big.Int).Mul(v, factor)
	}
	factor := pow10(int(from - to))
	return new(big.Int).Quo(v, factor)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
