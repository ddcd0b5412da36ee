package invoicing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency is the only currency the shop bills in.
const Currency = "MAD"

// FormatAmount renders an amount with the grouping and decimal separators of
// tag, e.g. "1 234,50 MAD" for French.
func FormatAmount(tag language.Tag, amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return message.NewPrinter(tag).Sprintf("%v %s", number.Decimal(f, number.Scale(2)), Currency)
}

// View is the invoice representation returned to clients.
type View struct {
	Invoice
	TotalDisplay string `json:"total_display"`
}

// NewView decorates inv with its localised total.
func NewView(tag language.Tag, inv Invoice) View {
	return View{Invoice: inv, TotalDisplay: FormatAmount(tag, inv.TotalInclTax)}
}
