package utils

import (
	"tux-order-services/internal/money"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToAmount reads a numeric column as a currency amount. NULL, NaN
// and infinities read as 0.
func NumericToAmount(value pgtype.Numeric) float64 {
	if !value.Valid || value.NaN || value.InfinityModifier != pgtype.Finite || value.Int == nil {
		return 0
	}
	return money.NormalizeCurrency(decimal.NewFromBigInt(value.Int, value.Exp))
}
