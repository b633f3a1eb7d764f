package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Token represents one entry of the token registry
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// ProtocolSplit is one liquidity source handling a share of a hop's volume
type ProtocolSplit struct {
	Name             string  `json:"name"`
	Part             float64 `json:"part"`
	FromTokenAddress string  `json:"fromTokenAddress"`
	ToTokenAddress   string  `json:"toTokenAddress"`
}

// SplitTree is the provider's nested routing structure:
// alternative full routes -> hops along a route -> parallel splits within a hop.
// Only the primary alternative (index 0) is ever routed.
type SplitTree [][][]ProtocolSplit

// RouteStep is the dominant protocol chosen for one hop and its output token
type RouteStep struct {
	Name           string
	ToTokenAddress common.Address
}

// Route is the flattened per-hop path for one leg of the round trip
type Route []RouteStep

// Evaluation is the result of one full round-trip check.
// Failed is set when either leg's quote request failed; the routes are nil
// and Log carries whatever detail the provider gave, possibly none.
type Evaluation struct {
	FromToken     Token
	ToToken       Token
	Profitable    bool
	Failed        bool
	OutboundRoute Route
	ReturnRoute   Route
	FromAmount    decimal.Decimal
	ToAmount      decimal.Decimal
	Difference    decimal.Decimal
	Percentage    decimal.Decimal
	Log           string
}

// Style is a semantic color key for a rendered row
type Style string

const (
	StyleNeutral Style = "white"
	StyleProfit  Style = "green"
	StyleError   Style = "red"
)

// Row is a partial display update for one token pair.
// Empty string fields leave the previously rendered value untouched.
type Row struct {
	FromToken  string
	ToToken    string
	FromAmount string
	ToAmount   string
	Difference string
	Percentage string
	Log        string
	Style      Style
}
