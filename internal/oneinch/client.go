package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/croswell/arb-scanner/internal/config"
	"github.com/croswell/arb-scanner/internal/metrics"
	"github.com/croswell/arb-scanner/pkg/types"
)

// TokenInfo echoes the provider's token metadata for one side of a quote
type TokenInfo struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// Quote is a successful response from the aggregation API.
// Amounts are smallest-unit integers.
type Quote struct {
	FromToken  TokenInfo
	ToToken    TokenInfo
	FromAmount *big.Int
	ToAmount   *big.Int
	Protocols  types.SplitTree
}

// QuoteError is any failed quote attempt. Provider-level errors carry the
// full status triple; transport failures keep a best-effort message and a
// zero status.
type QuoteError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *QuoteError) Error() string {
	if d := e.Detail(); d != "" {
		return "quote failed: " + d
	}
	return "quote failed"
}

// Detail renders "{status}: {statusText} ({message})" for provider errors,
// the bare message for transport errors, and "" when there is no detail
func (e *QuoteError) Detail() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d: %s (%s)", e.Status, e.StatusText, e.Message)
}

// Wire format of the /quote endpoint.
type quoteResponse struct {
	FromToken       wireToken       `json:"fromToken"`
	ToToken         wireToken       `json:"toToken"`
	FromTokenAmount string          `json:"fromTokenAmount"`
	ToTokenAmount   string          `json:"toTokenAmount"`
	Protocols       types.SplitTree `json:"protocols"`
}

type wireToken struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

type errorResponse struct {
	StatusCode  int    `json:"statusCode"`
	ErrorText   string `json:"error"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

// Client issues quote requests against the aggregation API
type Client struct {
	http      *http.Client
	baseURL   string
	network   string
	protocols string
	parts     int
	cfg       config.ProviderConfig
}

// NewClient creates a quote client for the configured network
func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		network:   cfg.Network,
		protocols: strings.Join(cfg.Protocols, ","),
		parts:     cfg.MainRouteParts,
		cfg:       cfg,
	}
}

// Quote requests a swap quote for amount of from into to. Failures are
// always returned as *QuoteError; callers recover the detail via errors.As.
// The call has no side effects and may be retried freely.
func (c *Client) Quote(ctx context.Context, from, to common.Address, amount *big.Int) (*Quote, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, &QuoteError{Message: "amount must be a non-negative integer"}
	}
	if from == to {
		return nil, &QuoteError{Message: "fromToken and toToken must differ"}
	}

	reqURL := c.quoteURL(from, to, amount)

	// At least one attempt regardless of configuration, so the loop
	// always produces either a quote or a non-nil error
	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr *QuoteError
	for i := 0; i < attempts; i++ {
		quote, qerr := c.doQuote(ctx, reqURL)
		if qerr == nil {
			return quote, nil
		}
		lastErr = qerr

		// Provider rejections are deterministic, retrying won't help
		if qerr.Status >= 400 && qerr.Status < 500 {
			return nil, qerr
		}

		log.Warn().
			Str("url", reqURL).
			Int("attempt", i+1).
			Str("detail", qerr.Detail()).
			Msg("Quote request failed, retrying...")
		select {
		case <-ctx.Done():
			return nil, &QuoteError{Message: ctx.Err().Error()}
		case <-time.After(c.cfg.RetryDelay):
		}
	}

	return nil, lastErr
}

func (c *Client) quoteURL(from, to common.Address, amount *big.Int) string {
	q := url.Values{}
	q.Set("fromTokenAddress", from.Hex())
	q.Set("toTokenAddress", to.Hex())
	q.Set("amount", amount.String())
	q.Set("mainRouteParts", fmt.Sprintf("%d", c.parts))
	if c.protocols != "" {
		q.Set("protocols", c.protocols)
	}
	return fmt.Sprintf("%s/%s/quote?%s", c.baseURL, c.network, q.Encode())
}

func (c *Client) doQuote(ctx context.Context, reqURL string) (*Quote, *QuoteError) {
	start := time.Now()
	defer func() {
		metrics.QuoteLatency.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &QuoteError{Message: err.Error()}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &QuoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &QuoteError{Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newProviderError(resp.StatusCode, body)
	}

	var wire quoteResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &QuoteError{Message: fmt.Sprintf("malformed quote body: %v", err)}
	}

	toAmount, ok := new(big.Int).SetString(wire.ToTokenAmount, 10)
	if !ok {
		return nil, &QuoteError{Message: fmt.Sprintf("malformed toTokenAmount %q", wire.ToTokenAmount)}
	}
	fromAmount, ok := new(big.Int).SetString(wire.FromTokenAmount, 10)
	if !ok {
		return nil, &QuoteError{Message: fmt.Sprintf("malformed fromTokenAmount %q", wire.FromTokenAmount)}
	}

	return &Quote{
		FromToken:  tokenInfo(wire.FromToken),
		ToToken:    tokenInfo(wire.ToToken),
		FromAmount: fromAmount,
		ToAmount:   toAmount,
		Protocols:  wire.Protocols,
	}, nil
}

// newProviderError extracts the application error payload when present
func newProviderError(status int, body []byte) *QuoteError {
	qe := &QuoteError{
		Status:     status,
		StatusText: http.StatusText(status),
	}

	var wire errorResponse
	if err := json.Unmarshal(body, &wire); err == nil {
		switch {
		case wire.ErrorText != "":
			qe.Message = wire.ErrorText
		case wire.Description != "":
			qe.Message = wire.Description
		case wire.Message != "":
			qe.Message = wire.Message
		}
	}
	return qe
}

func tokenInfo(w wireToken) TokenInfo {
	return TokenInfo{
		Symbol:   w.Symbol,
		Address:  common.HexToAddress(w.Address),
		Decimals: w.Decimals,
	}
}
