package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatProducts(t *testing.T) {
	t.Run("should return the notice for an empty catalog", func(t *testing.T) {
		assert.Equal(t, EmptyCatalogNotice, FormatProducts(nil))
		assert.Equal(t, EmptyCatalogNotice, FormatProducts([]Entry{}))
	})

	t.Run("should render every product with id, name and price", func(t *testing.T) {
		got := FormatProducts([]Entry{
			{ID: "p1", Name: "Red Shirt", Description: "Cotton, size M", PriceAmount1000: 100_000_000},
			{ID: "p2", Name: "Mug", PriceAmount1000: 25_000_000},
		})

		assert.Contains(t, got, "ID: p1")
		assert.Contains(t, got, "Name: Red Shirt")
		assert.Contains(t, got, "Description: Cotton, size M")
		assert.Contains(t, got, "Price: IDR 100.000")

		assert.Contains(t, got, "ID: p2")
		assert.Contains(t, got, "Price: IDR 25.000")
	})

	t.Run("should render a missing description as N/A", func(t *testing.T) {
		got := FormatProducts([]Entry{{ID: "p1", Name: "Mug", PriceAmount1000: 25_000_000}})
		assert.Contains(t, got, "Description: N/A")
	})
}

func TestFormatIDR(t *testing.T) {
	tests := []struct {
		name       string
		amount1000 int64
		want       string
	}{
		{name: "hundred thousand", amount1000: 100_000_000, want: "IDR 100.000"},
		{name: "two hundred thousand", amount1000: 200_000_000, want: "IDR 200.000"},
		{name: "below one thousand group", amount1000: 500_000, want: "IDR 500"},
		{name: "millions", amount1000: 1_250_000_000, want: "IDR 1.250.000"},
		{name: "zero", amount1000: 0, want: "IDR 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatIDR(tt.amount1000))
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Run("should place behavior, rules and catalog in order", func(t *testing.T) {
		prompt := BuildSystemPrompt("CATALOG-BLOCK", "Act like a pirate.")

		behaviorIdx := indexOf(t, prompt, "Act like a pirate.")
		rulesIdx := indexOf(t, prompt, "Call at most one tool per response")
		catalogIdx := indexOf(t, prompt, "CATALOG-BLOCK")

		assert.Less(t, behaviorIdx, rulesIdx)
		assert.Less(t, rulesIdx, catalogIdx)
		assert.Contains(t, prompt, "---\nCATALOG-BLOCK\n---")
	})

	t.Run("should fall back to the default behavior", func(t *testing.T) {
		prompt := BuildSystemPrompt("CATALOG-BLOCK", "")
		assert.Contains(t, prompt, DefaultBehavior)
	})

	t.Run("should carry the gathering and id rules", func(t *testing.T) {
		prompt := BuildSystemPrompt("x", "")
		assert.Contains(t, prompt, "create_order")
		assert.Contains(t, prompt, "order_status")
		assert.Contains(t, prompt, "Never mention a product ID")
	})
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	idx := strings.Index(s, sub)
	if idx < 0 {
		t.Fatalf("%q not found in prompt", sub)
	}
	return idx
}
