package storage

import (
	"context"

	"vaultScope/internal/model"
	"vaultScope/internal/valuation"
)

// Sink receives valuation outputs.
type Sink interface {
	PutReport(ctx context.Context, report valuation.Report) error
	PutLpPrices(ctx context.Context, prices []model.LpPriceResult) error
}
