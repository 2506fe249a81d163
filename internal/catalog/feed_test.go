package catalog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"$13.000,00", "13000.00"},
		{"13.000,50", "13000.50"},
		{"13000", "13000"},
		{"1,299.50", "1299.50"},
		{"1,299,500", "1299500"},
		{"1299.5", "1299.5"},
		{"4500,00", "4500.00"},
		{"$ 250", "250"},
		{"", "0"},
		{"-10", "0"},
	}
	for _, tc := range cases {
		got, err := ParsePrice(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.True(t, decimal.RequireFromString(tc.want).Equal(got),
			"input %q: want %s, got %s", tc.in, tc.want, got)
	}
}

func TestParsePrice_Garbage(t *testing.T) {
	got, err := ParsePrice("n/a")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestParseStock(t *testing.T) {
	assert.Equal(t, 12, ParseStock("12"))
	assert.Equal(t, 12, ParseStock(" 12 unidades "))
	assert.Equal(t, 0, ParseStock(""))
	assert.Equal(t, 0, ParseStock("sin stock"))
}

func TestReadProducts_SpanishHeader(t *testing.T) {
	feed := strings.Join([]string{
		"id,Producto,Cantidad,Precio Unitario,Imagen,Categoría",
		"a1,Auriculares BT,5,\"$13.000,00\",auri.jpg,Audio",
		"a2,Cargador 20W,12,\"4.500,00\",,Accesorios",
	}, "\n")

	products, err := ReadProducts(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "a1", products[0].ID)
	assert.Equal(t, "Auriculares BT", products[0].Name)
	assert.Equal(t, 5, products[0].Stock)
	assert.True(t, decimal.RequireFromString("13000.00").Equal(products[0].Price))
	assert.Equal(t, "auri.jpg", products[0].Image)
	assert.Equal(t, "audio", products[0].Category, "category is lowercased for URL use")

	assert.Equal(t, "a2", products[1].ID)
	assert.Empty(t, products[1].Image)
}

func TestReadProducts_EnglishHeader(t *testing.T) {
	feed := "sku,name,stock,price\np1,Widget,3,10.50\n"

	products, err := ReadProducts(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, 3, products[0].Stock)
}

func TestReadProducts_MissingIDUsesOrdinal(t *testing.T) {
	feed := "Producto,Cantidad,Precio\nWidget,1,10\n,2,20\nGadget,3,30\n"

	products, err := ReadProducts(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, products, 2, "nameless rows are dropped")
	assert.Equal(t, "1", products[0].ID)
	assert.Equal(t, "3", products[1].ID, "ordinal counts dropped rows too")
}

func TestReadProducts_NoHeader(t *testing.T) {
	_, err := ReadProducts(strings.NewReader("foo,bar\n1,2\n"))
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("id,name,stock,price\np1,Widget,2,99\n"))
	}))
	defer srv.Close()

	products, err := Fetch(t.Context(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products[0].Name)
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Fetch(t.Context(), srv.Client(), srv.URL)
	require.Error(t, err)
}
