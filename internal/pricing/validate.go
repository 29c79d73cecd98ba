package pricing

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/model"
)

// ValidateAddress checks that input is a 0x-prefixed 20-byte hex address.
func ValidateAddress(field, input string) error {
	if !(strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X")) || !common.IsHexAddress(input) {
		return &model.InputValidationError{
			Field:  field,
			Value:  input,
			Reason: "expected 0x-prefixed 40 hex characters",
			Err:    model.ErrInvalidAddress,
		}
	}
	return nil
}

// ValidateInput checks an LP address and chain before any computation.
func ValidateInput(lpAddress, chain string) (model.Chain, error) {
	if err := ValidateAddress("lp address", lpAddress); err != nil {
		return "", err
	}
	return model.ParseChain(chain)
}
