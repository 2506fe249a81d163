// Package catalog consumes the published product feed: a CSV export whose
// rows map to catalog products. The feed seeds and refreshes the product
// table; it plays no part in checkout.
package catalog

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/mastecno/storefront/internal/domain/product"
)

// Column aliases accepted in the feed header, matched case-insensitively
// with accents folded. The sheet is maintained by hand in Spanish; English
// names are accepted for exported copies.
var (
	idAliases       = []string{"id", "sku", "codigo", "cod"}
	nameAliases     = []string{"producto", "nombre", "name", "product", "descripcion"}
	stockAliases    = []string{"stock", "cantidad", "quantity", "unidades"}
	priceAliases    = []string{"precio unitario", "precio", "price", "unit price", "importe", "valor"}
	imageAliases    = []string{"imagen", "image", "foto", "url"}
	categoryAliases = []string{"categoria", "category", "rubro"}
)

// ErrNoHeader is returned when the first feed row matches no known columns.
var ErrNoHeader = errors.New("feed has no recognizable header row")

// Fetch downloads the feed CSV over HTTP and parses it.
func Fetch(ctx context.Context, client *http.Client, url string) ([]product.Product, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build feed request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch feed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch feed: HTTP %d %s", resp.StatusCode, resp.Status)
	}
	return ReadProducts(resp.Body)
}

// ReadProducts parses feed CSV into products. The first row must be the
// header; it is matched against the known column aliases. Rows without a
// name are skipped; rows without an id get their ordinal as id, matching
// how the source spreadsheet numbers unlabeled rows.
func ReadProducts(r io.Reader) ([]product.Product, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read feed header")
	}

	cols := mapColumns(header)
	if cols.name < 0 {
		return nil, ErrNoHeader
	}

	var out []product.Product
	for ordinal := 1; ; ordinal++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read feed row %d", ordinal)
		}

		p, ok := mapRow(cols, row, ordinal)
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// columns holds the resolved index per field, -1 when absent.
type columns struct {
	id, name, stock, price, image, category int
}

func mapColumns(header []string) columns {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		key := foldHeader(h)
		if key != "" {
			byName[key] = i
		}
	}

	pick := func(aliases []string) int {
		for _, a := range aliases {
			if i, ok := byName[a]; ok {
				return i
			}
		}
		return -1
	}

	return columns{
		id:       pick(idAliases),
		name:     pick(nameAliases),
		stock:    pick(stockAliases),
		price:    pick(priceAliases),
		image:    pick(imageAliases),
		category: pick(categoryAliases),
	}
}

func mapRow(cols columns, row []string, ordinal int) (product.Product, bool) {
	field := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	name := field(cols.name)
	if name == "" {
		return product.Product{}, false
	}

	id := field(cols.id)
	if id == "" {
		id = strconv.Itoa(ordinal)
	}

	price, err := ParsePrice(field(cols.price))
	if err != nil {
		price = decimal.Zero
	}

	return product.Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Stock:    ParseStock(field(cols.stock)),
		Image:    field(cols.image),
		Category: strings.ToLower(field(cols.category)),
	}, true
}

// accentFold maps the accented characters that actually occur in the feed.
var accentFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func foldHeader(h string) string {
	return accentFold.Replace(strings.ToLower(strings.TrimSpace(h)))
}

// ParsePrice parses feed price cells in both Argentine and plain formats:
// "$13.000,00", "13.000,00", "13000", "1,299.50", "1299.5". Currency symbols
// and spaces are dropped; when both separators appear, the last one is the
// decimal mark.
func ParsePrice(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return decimal.Zero, nil
	}

	comma := strings.LastIndexByte(cleaned, ',')
	dot := strings.LastIndexByte(cleaned, '.')
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			// 13.000,50: dots group, comma is decimal.
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			// 1,299.50: commas group, dot is decimal.
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case comma >= 0:
		if strings.Count(cleaned, ",") > 1 {
			// 1,299,500: several commas can only be grouping.
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse price %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, nil
	}
	return d, nil
}

// ParseStock parses a stock cell, keeping digits only. Anything unparseable
// counts as zero stock, never as available inventory.
func ParseStock(s string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}
