// Package money normalizes, formats and splits EGP amounts.
//
// Amounts are float64 values rounded to two decimals at every boundary; the
// cent helpers exist for the places where exact integer arithmetic matters.
package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const CurrencyCode = "EGP"

var (
	egp     = currency.MustParseISO(CurrencyCode)
	printer = message.NewPrinter(language.English)
)

// Split is a cash/Instapay breakdown of a total.
type Split struct {
	Cash     float64 `json:"cash"`
	Instapay float64 `json:"instapay"`
}

// NormalizeCurrency coerces value to a non-negative amount rounded to cents.
// Anything that cannot be read as a finite number becomes 0.
func NormalizeCurrency(value any) float64 {
	var d decimal.Decimal
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		d = decimal.NewFromFloat(v)
	case float32:
		return NormalizeCurrency(float64(v))
	case int:
		d = decimal.NewFromInt(int64(v))
	case int32:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case decimal.Decimal:
		d = v
	case json.Number:
		return NormalizeCurrency(string(v))
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		d = parsed
	default:
		return 0
	}

	if d.IsNegative() {
		return 0
	}
	f, _ := d.Round(2).Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Round2 rounds half away from zero to two decimals.
func Round2(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(value).Round(2).Float64()
	return f
}

func Cents(value float64) int64 {
	return decimal.NewFromFloat(Round2(value)).Shift(2).IntPart()
}

func FromCents(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

// Equal reports whether a and b are the same amount to the cent.
func Equal(a, b float64) bool {
	return Cents(a) == Cents(b)
}

// SuggestSplit halves total: cash takes the floor in cents, Instapay the rest.
func SuggestSplit(total float64) Split {
	cents := Cents(total)
	if cents <= 0 {
		return Split{}
	}
	cash := cents / 2
	return Split{Cash: FromCents(cash), Instapay: FromCents(cents - cash)}
}

// FormatCurrency renders value as "EGP 1,234.50". It never panics.
func FormatCurrency(value float64) (out string) {
	amount := Round2(value)
	defer func() {
		if recover() != nil {
			out = fallbackFormat(amount)
		}
	}()

	symbol := egp.String()
	formatted := printer.Sprint(number.Decimal(amount, number.Scale(2)))
	if strings.TrimSpace(formatted) == "" {
		return fallbackFormat(amount)
	}
	return symbol + " " + formatted
}

func fallbackFormat(value float64) string {
	return fmt.Sprintf("%s %.2f", CurrencyCode, value)
}
