// Package catalog renders a tenant's product list into the textual
// context block the chat model reads, and builds the system prompt
// around it.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// EmptyCatalogNotice is returned instead of an empty block so the model
// never mistakes an empty catalog for an omitted one.
const EmptyCatalogNotice = "No products are available in the catalog."

// Entry is one product as the formatter sees it. PriceAmount1000 is in
// thousandths of a rupiah.
type Entry struct {
	ID              string
	Name            string
	Description     string
	PriceAmount1000 int64
}

// FormatProducts renders the catalog as one fixed-format entry per
// product. Pure function; order is preserved.
func FormatProducts(products []Entry) string {
	if len(products) == 0 {
		return EmptyCatalogNotice
	}

	entries := make([]string, 0, len(products))
	for _, p := range products {
		description := p.Description
		if description == "" {
			description = "N/A"
		}
		entries = append(entries, fmt.Sprintf(
			"- ID: %s\n  Name: %s\n  Description: %s\n  Price: %s",
			p.ID, p.Name, description, FormatIDR(p.PriceAmount1000),
		))
	}
	return strings.Join(entries, "\n\n")
}

// FormatIDR renders an amount-1000 price as Indonesian rupiah with dot
// thousands grouping, e.g. 100_000_000 becomes "IDR 100.000".
func FormatIDR(amount1000 int64) string {
	return "IDR " + groupThousands(amount1000/1000)
}

func groupThousands(n int64) string {
	negative := n < 0
	if negative {
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}
