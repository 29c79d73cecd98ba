package model

import "strings"

// Chain identifies a supported EVM network.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBase     Chain = "base"
	ChainArbitrum Chain = "arbitrum"
	ChainPolygon  Chain = "polygon"
)

// EVM chain ids.
var supportedChains = map[Chain]uint64{
	ChainEthereum: 1,
	ChainBase:     8453,
	ChainArbitrum: 42161,
	ChainPolygon:  137,
}

// SupportedChains lists the chains accepted by ParseChain.
func SupportedChains() []Chain {
	return []Chain{ChainEthereum, ChainBase, ChainArbitrum, ChainPolygon}
}

// ParseChain normalizes and validates a chain identifier.
func ParseChain(input string) (Chain, error) {
	chain := Chain(strings.ToLower(strings.TrimSpace(input)))
	if _, ok := supportedChains[chain]; !ok {
		return "", &InputValidationError{
			Field:  "chain",
			Value:  input,
			Reason: "unsupported chain",
			Err:    ErrUnsupportedChain,
		}
	}
	return chain, nil
}

func (c Chain) String() string {
	return string(c)
}

// ChainID returns the EVM chain id, or 0 for an unsupported chain.
func (c Chain) ChainID() uint64 {
	return supportedChains[c]
}

// LlamaKey is the chain prefix used by DeFiLlama coin identifiers.
func (c Chain) LlamaKey() string {
	return string(c)
}
