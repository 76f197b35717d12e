package display

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the only currency the storefront quotes in.
const Currency = "CLP"

var clpPrinter = message.NewPrinter(language.MustParse("es-CL"))

// CLP formats an amount as Chilean pesos without decimals, e.g. "$25.000".
func CLP(amount decimal.Decimal) string {
	rounded := amount.Round(0).IntPart()
	if rounded < 0 {
		return "-" + clpPrinter.Sprintf("$%d", -rounded)
	}
	return clpPrinter.Sprintf("$%d", rounded)
}
