package invoice

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencyLocale is the fixed numeric locale for amounts.
var CurrencyLocale = language.MustParse("en-BD")

var leadingNumber = regexp.MustCompile(`^-?(?:[0-9]+(?:\.[0-9]+)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?`)

// FormatCurrency renders amount as "<symbol> 1,234.50". Non-numeric or
// missing input formats as zero.
func FormatCurrency(amount any, symbol string) string {
	return symbol + " " + formatFixed(CoerceAmount(amount).Round(2))
}

func formatFixed(value decimal.Decimal) string {
	sign := ""
	if value.IsNegative() {
		sign = "-"
		value = value.Neg()
	}
	whole, frac, _ := strings.Cut(value.StringFixed(2), ".")
	return sign + groupDigits(whole) + "." + frac
}

func groupDigits(whole string) string {
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		return message.NewPrinter(CurrencyLocale).Sprint(number.Decimal(n))
	}
	// beyond int64: plain groups of three
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CoerceAmount converts loosely typed input to a decimal, yielding zero when
// the input has no numeric reading.
func CoerceAmount(amount any) decimal.Decimal {
	switch v := amount.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return *v
	case decimal.NullDecimal:
		if !v.Valid {
			return decimal.Zero
		}
		return v.Decimal
	case Money:
		if !v.Valid {
			return decimal.Zero
		}
		return v.Decimal
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint32:
		return decimal.NewFromInt(int64(v))
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case json.Number:
		return parseLeadingNumber(v.String())
	case string:
		return parseLeadingNumber(v)
	default:
		return decimal.Zero
	}
}

func fromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func parseLeadingNumber(raw string) decimal.Decimal {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "+")
	match := leadingNumber.FindString(raw)
	if match == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero
	}
	return value
}
