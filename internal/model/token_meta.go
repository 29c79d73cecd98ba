package model

// TokenMeta captures the ERC20 fields needed to scale raw amounts.
type TokenMeta struct {
	Chain    Chain  `json:"chain"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
}
