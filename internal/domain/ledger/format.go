package ledger

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders an amount with English digit grouping and two decimals,
// e.g. 4,500,000.00. Digits come from the decimal itself, never a float.
func Format(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	whole, frac, _ := strings.Cut(amount.StringFixed(2), ".")

	var grouped string
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		grouped = printer.Sprintf("%d", n)
	} else {
		grouped = groupThousands(whole)
	}
	return sign + grouped + "." + frac
}

// groupThousands inserts commas into a digit string too long for int64
func groupThousands(digits string) string {
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatNull renders a nullable amount, using "-" for null
func FormatNull(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return "-"
	}
	return Format(amount.Decimal)
}
