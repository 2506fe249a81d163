package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ItemInput is a product-like payload as clients send it. Catalog rows,
// product detail views, and previously serialized cart lines disagree on
// field names, so every aliased spelling is accepted and the first non-empty
// one wins.
type ItemInput struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Image     string          `json:"image"`
	ImageURL  string          `json:"imageUrl"`
	Color     string          `json:"color"`
	Variant   string          `json:"variant"`
}

// Normalize collapses an aliased item payload into a canonical Line with
// quantity 1. Missing fields become empty strings or zero; negative prices
// are floored at zero.
func Normalize(raw ItemInput) Line {
	price := raw.Price
	if price.IsZero() {
		price = raw.UnitPrice
	}
	if price.IsNegative() {
		price = decimal.Zero
	}

	return Line{
		ProductID: strings.TrimSpace(firstNonEmpty(raw.ProductID, raw.ID)),
		Title:     strings.TrimSpace(firstNonEmpty(raw.Title, raw.Name)),
		UnitPrice: price,
		Quantity:  1,
		Color:     strings.TrimSpace(raw.Color),
		Variant:   strings.TrimSpace(raw.Variant),
		Image:     strings.TrimSpace(firstNonEmpty(raw.Image, raw.ImageURL)),
	}
}

// NormalizeLines re-normalizes lines restored from a serialized snapshot:
// quantities are floored at 1, negative prices at zero, and identifier
// fields trimmed. Tolerates schema drift in old snapshots.
func NormalizeLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		fixed := Line{
			ProductID: strings.TrimSpace(l.ProductID),
			Title:     strings.TrimSpace(l.Title),
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Color:     strings.TrimSpace(l.Color),
			Variant:   strings.TrimSpace(l.Variant),
			Image:     strings.TrimSpace(l.Image),
		}
		if fixed.Quantity < 1 {
			fixed.Quantity = 1
		}
		if fixed.UnitPrice.IsNegative() {
			fixed.UnitPrice = decimal.Zero
		}
		out = append(out, fixed)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
