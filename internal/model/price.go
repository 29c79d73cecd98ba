package model

import "time"

// TokenAmount is a raw integer token amount with the token's decimal scale.
type TokenAmount struct {
	Raw      string `json:"raw"`
	Decimals uint8  `json:"decimals"`
}

// NewTokenAmount builds a TokenAmount.
func NewTokenAmount(raw string, decimals uint8) TokenAmount {
	return TokenAmount{Raw: raw, Decimals: decimals}
}

// IsZero reports whether the raw amount is empty or made only of zeros.
func (a TokenAmount) IsZero() bool {
	for _, r := range a.Raw {
		if r != '0' {
			return false
		}
	}
	return true
}

// TokenPrice is a USD quote supplied by a price feed.
type TokenPrice struct {
	TokenAddress string    `json:"token_address"`
	Chain        Chain     `json:"chain"`
	USDPrice     float64   `json:"usd_price"`
	Source       string    `json:"source"`
	ObservedAt   time.Time `json:"observed_at"`
	IsStale      bool      `json:"is_stale"`
}

// LpReserveSnapshot captures pair reserves and LP supply observed at one block.
type LpReserveSnapshot struct {
	LpAddress   string      `json:"lp_address"`
	Chain       Chain       `json:"chain"`
	Token0      string      `json:"token0"`
	Token1      string      `json:"token1"`
	Reserve0    TokenAmount `json:"reserve0"`
	Reserve1    TokenAmount `json:"reserve1"`
	TotalSupply TokenAmount `json:"total_supply"`
	BlockNumber uint64      `json:"block_number"`
	ObservedAt  time.Time   `json:"observed_at"`
}

// PriceMethod records which formula produced an LP price.
type PriceMethod string

const (
	PriceMethodGeometric  PriceMethod = "geometric"
	PriceMethodArithmetic PriceMethod = "arithmetic"
	PriceMethodZero       PriceMethod = "zero"
)

// LpPriceResult is the USD valuation of one LP token.
type LpPriceResult struct {
	LpAddress         string      `json:"lp_address"`
	Chain             Chain       `json:"chain"`
	USDPrice          float64     `json:"usd_price"`
	Method            PriceMethod `json:"method"`
	Reserve0USD       float64     `json:"reserve0_usd"`
	Reserve1USD       float64     `json:"reserve1_usd"`
	TotalLiquidityUSD float64     `json:"total_liquidity_usd"`
	Token0Weight      float64     `json:"token0_weight"`
	Token1Weight      float64     `json:"token1_weight"`
	BlockNumber       uint64      `json:"block_number"`
	ObservedAt        time.Time   `json:"observed_at"`
}
