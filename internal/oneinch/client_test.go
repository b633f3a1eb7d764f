package oneinch

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croswell/arb-scanner/internal/config"
)

var (
	fromAddr = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
	toAddr   = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

func testClient(baseURL string) *Client {
	return NewClient(config.ProviderConfig{
		BaseURL:        baseURL,
		Network:        "1",
		Protocols:      []string{"UNISWAP_V2", "SUSHI"},
		MainRouteParts: 10,
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  2,
		RetryDelay:     time.Millisecond,
	})
}

func TestQuoteSuccess(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"fromToken": {"symbol": "ETH", "decimals": 18, "address": "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"},
			"toToken": {"symbol": "DAI", "decimals": 18, "address": "0x6b175474e89094c44da98b954eedeac495271d0f"},
			"fromTokenAmount": "10000000000000000000",
			"toTokenAmount": "10600000000000000000",
			"protocols": [[[{"name": "UNISWAP_V2", "part": 100, "fromTokenAddress": "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", "toTokenAddress": "0x6b175474e89094c44da98b954eedeac495271d0f"}]]]
		}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	quote, err := c.Quote(context.Background(), fromAddr, toAddr, big.NewInt(1e18))

	require.NoError(t, err)
	assert.Equal(t, "/1/quote", gotPath)
	assert.Equal(t, fromAddr.Hex(), gotQuery["fromTokenAddress"])
	assert.Equal(t, toAddr.Hex(), gotQuery["toTokenAddress"])
	assert.Equal(t, "1000000000000000000", gotQuery["amount"])
	assert.Equal(t, "10", gotQuery["mainRouteParts"])
	assert.Equal(t, "UNISWAP_V2,SUSHI", gotQuery["protocols"])

	assert.Equal(t, "DAI", quote.ToToken.Symbol)
	assert.Equal(t, uint8(18), quote.ToToken.Decimals)
	assert.Equal(t, "10600000000000000000", quote.ToAmount.String())
	assert.Equal(t, "10000000000000000000", quote.FromAmount.String())
	require.Len(t, quote.Protocols, 1)
	require.Len(t, quote.Protocols[0], 1)
	assert.Equal(t, "UNISWAP_V2", quote.Protocols[0][0][0].Name)
}

func TestQuoteProviderError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"statusCode": 400, "error": "insufficient liquidity"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	quote, err := c.Quote(context.Background(), fromAddr, toAddr, big.NewInt(1))

	assert.Nil(t, quote)
	var qe *QuoteError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 400, qe.Status)
	assert.Equal(t, "Bad Request", qe.StatusText)
	assert.Equal(t, "insufficient liquidity", qe.Message)
	assert.Equal(t, "400: Bad Request (insufficient liquidity)", qe.Detail())
	// Provider rejections are not retried
	assert.Equal(t, 1, calls)
}

func TestQuoteServerErrorIsRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Quote(context.Background(), fromAddr, toAddr, big.NewInt(1))

	var qe *QuoteError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 502, qe.Status)
	assert.Equal(t, 2, calls)
}

func TestQuoteZeroRetryAttemptsStillIssuesOneRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(config.ProviderConfig{
		BaseURL:        srv.URL,
		Network:        "1",
		MainRouteParts: 10,
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  0,
		RetryDelay:     time.Millisecond,
	})

	quote, err := c.Quote(context.Background(), fromAddr, toAddr, big.NewInt(1))

	assert.Nil(t, quote)
	require.Error(t, err)
	// The error must stay usable even when the retry budget is misconfigured
	assert.NotEmpty(t, err.Error())
	var qe *QuoteError
	require.True(t, errors.As(err, &qe))
	require.NotNil(t, qe)
	assert.Equal(t, 502, qe.Status)
	assert.Equal(t, 1, calls)
}

func TestQuoteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c := testClient(srv.URL)
	quote, err := c.Quote(context.Background(), fromAddr, toAddr, big.NewInt(1))

	assert.Nil(t, quote)
	var qe *QuoteError
	require.True(t, errors.As(err, &qe))
	assert.Zero(t, qe.Status)
	assert.NotEmpty(t, qe.Message)
	assert.Equal(t, qe.Message, qe.Detail())
}

func TestQuoteMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"toTokenAmount": "not-a-number"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	quote, err := c.Quote(context.Background(), fromAddr, toAddr, big.NewInt(1))

	assert.Nil(t, quote)
	var qe *QuoteError
	require.True(t, errors.As(err, &qe))
	assert.Contains(t, qe.Message, "toTokenAmount")
}

func TestQuoteRejectsBadInput(t *testing.T) {
	c := testClient("http://localhost:0")

	_, err := c.Quote(context.Background(), fromAddr, toAddr, big.NewInt(-1))
	var qe *QuoteError
	require.True(t, errors.As(err, &qe))

	_, err = c.Quote(context.Background(), fromAddr, fromAddr, big.NewInt(1))
	require.True(t, errors.As(err, &qe))
}

func TestDetailFormats(t *testing.T) {
	assert.Equal(t, "", (&QuoteError{}).Detail())
	assert.Equal(t, "dial timeout", (&QuoteError{Message: "dial timeout"}).Detail())
	assert.Equal(t, "503: Service Unavailable ()", (&QuoteError{Status: 503, StatusText: "Service Unavailable"}).Detail())
}
