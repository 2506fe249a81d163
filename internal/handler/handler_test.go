package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastecno/storefront/internal/domain/auth"
	"github.com/mastecno/storefront/internal/domain/cart"
	"github.com/mastecno/storefront/internal/domain/order"
	"github.com/mastecno/storefront/internal/domain/product"
)

const testPepper = "test-pepper"

type fakeProducts struct {
	mu    sync.Mutex
	items map[string]product.Product
}

func newFakeProducts(items ...product.Product) *fakeProducts {
	m := make(map[string]product.Product, len(items))
	for _, p := range items {
		m[p.ID] = p
	}
	return &fakeProducts{items: m}
}

func (f *fakeProducts) List(context.Context) ([]product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]product.Product, 0, len(f.items))
	for _, p := range f.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Upsert(_ context.Context, p *product.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[p.ID] = *p
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return product.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

// fakeOrderStore runs the atomic block against staged stock so a failed
// block leaves nothing behind.
type fakeOrderStore struct {
	mu       sync.Mutex
	products *fakeProducts
	orders   map[string]order.Order
}

func newFakeOrderStore(products *fakeProducts) *fakeOrderStore {
	return &fakeOrderStore{products: products, orders: make(map[string]order.Order)}
}

type fakeTx struct {
	store  *fakeOrderStore
	stock  map[string]int
	placed []*order.Order
}

func (s *fakeOrderStore) RunAtomic(_ context.Context, fn func(tx order.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &fakeTx{store: s, stock: make(map[string]int)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, stock := range tx.stock {
		p := s.products.items[id]
		p.Stock = stock
		s.products.items[id] = p
	}
	for _, o := range tx.placed {
		s.orders[o.ID] = *o
	}
	return nil
}

func (tx *fakeTx) ProductStock(_ context.Context, id string) (int, error) {
	if stock, ok := tx.stock[id]; ok {
		return stock, nil
	}
	p, ok := tx.store.products.items[id]
	if !ok {
		return 0, product.ErrNotFound
	}
	tx.stock[id] = p.Stock
	return p.Stock, nil
}

func (tx *fakeTx) DecrementStock(_ context.Context, id string, by int) error {
	tx.stock[id] -= by
	return nil
}

func (tx *fakeTx) InsertOrder(_ context.Context, o *order.Order) error {
	tx.placed = append(tx.placed, o)
	return nil
}

func (s *fakeOrderStore) List(context.Context) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return &o, nil
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, id string, status order.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

type fakeKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (f *fakeKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if info, ok := f.byHash[hash]; ok {
		return info, nil
	}
	return nil, auth.ErrKeyNotFound
}

func keyHash(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

type testEnv struct {
	server   *httptest.Server
	products *fakeProducts
	store    *fakeOrderStore
	carts    cart.Store
}

func newTestEnv(t *testing.T, items ...product.Product) *testEnv {
	t.Helper()
	products := newFakeProducts(items...)
	store := newFakeOrderStore(products)
	carts := cart.NewMemoryStore()

	adminHash := keyHash("admin-key")
	keys := &fakeKeys{byHash: map[string]*auth.APIKeyInfo{
		adminHash: {ID: "k1", KeyHash: adminHash, Name: "test", Scopes: []string{"admin"}},
	}}

	h := NewHandler(
		Config{ImageBaseURL: "https://img.example.com"},
		products,
		order.NewService(store, store),
		carts,
		keys,
		[]byte(testPepper),
	)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, products: products, store: store, carts: carts}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, apiKey string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("api_key", apiKey)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func testProduct(id, name string, price float64, stock int) product.Product {
	return product.Product{
		ID:    id,
		Name:  name,
		Price: decimal.NewFromFloat(price),
		Stock: stock,
		Image: "imgs/" + id + ".jpg",
	}
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t,
		testProduct("p1", "Mate", 13000, 5),
		testProduct("p2", "Bombilla", 2500, 3),
	)

	resp := env.do(t, http.MethodGet, "/products", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[[]productResponse](t, resp)
	require.Len(t, out, 2)
	assert.Equal(t, "p1", out[0].ID)
	assert.Equal(t, 13000.0, out[0].Price)
	assert.Equal(t, "https://img.example.com/imgs/p1.jpg", out[0].Image)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/products/nope", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "product_not_found", out.Code)
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)

	// Aliased item payload merges by product/color/variant key.
	add := map[string]any{"id": "p1", "name": "Mate", "price": 13000, "color": "red", "quantity": 2}
	resp := env.do(t, http.MethodPost, "/carts/c1/lines", add, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decodeBody[cartResponse](t, resp)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "Mate", c.Lines[0].Title)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.Equal(t, 26000.0, c.TotalAmount)

	resp = env.do(t, http.MethodPost, "/carts/c1/lines", add, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c = decodeBody[cartResponse](t, resp)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 4, c.Lines[0].Quantity)

	key := url.PathEscape(cart.LineKey("p1", "red", ""))
	resp = env.do(t, http.MethodPatch, "/carts/c1/lines/"+key, map[string]any{"op": "set", "quantity": 1}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c = decodeBody[cartResponse](t, resp)
	assert.Equal(t, 1, c.TotalItems)

	resp = env.do(t, http.MethodDelete, "/carts/c1/lines/"+key, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c = decodeBody[cartResponse](t, resp)
	assert.Empty(t, c.Lines)
}

func TestAddCartLine_MissingProductID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/carts/c1/lines", map[string]any{"name": "Mate"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "invalid_item", out.Code)
}

func TestPlaceOrder_InlineLines(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Mate", 13000, 5))

	body := map[string]any{
		"buyer": map[string]any{"name": "Ana", "phone": "111", "email": "ana@example.com"},
		"lines": []map[string]any{
			{"productId": "p1", "title": "Mate", "unitPrice": 13000, "quantity": 3},
		},
	}
	resp := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	out := decodeBody[placeOrderResponse](t, resp)
	assert.NotEmpty(t, out.OrderID)
	assert.Equal(t, 39000.0, out.Total)
	assert.Equal(t, 2, env.products.items["p1"].Stock)
}

func TestPlaceOrder_FromStoredCart(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Mate", 13000, 5))

	c := cart.New(nil)
	c.Add(cart.ItemInput{ID: "p1", Name: "Mate", Price: decimal.NewFromInt(13000)}, 2)
	require.NoError(t, env.carts.Save(context.Background(), "c1", c.Lines()))

	body := map[string]any{
		"cartId": "c1",
		"buyer":  map[string]any{"name": "Ana"},
	}
	resp := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 3, env.products.items["p1"].Stock)

	// The cart is cleared once the order commits.
	lines, err := env.carts.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/orders", map[string]any{"lines": []any{}}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "empty_cart", out.Code)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Mate", 13000, 2))

	body := map[string]any{
		"lines": []map[string]any{
			{"productId": "p1", "unitPrice": 13000, "quantity": 3},
		},
	}
	resp := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "insufficient_stock", out.Code)
	assert.Equal(t, 2, env.products.items["p1"].Stock)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"lines": []map[string]any{
			{"productId": "ghost", "unitPrice": 10, "quantity": 1},
		},
	}
	resp := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "product_not_found", out.Code)
}

func TestAdminRoutes_RequireAPIKey(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/orders", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/orders", nil, "wrong-key")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/orders", nil, "admin-key")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Mate", 13000, 5))

	body := map[string]any{
		"lines": []map[string]any{
			{"productId": "p1", "unitPrice": 13000, "quantity": 1},
		},
	}
	resp := env.do(t, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decodeBody[placeOrderResponse](t, resp)

	resp = env.do(t, http.MethodPatch, "/orders/"+placed.OrderID+"/status",
		map[string]any{"status": "shipped"}, "admin-key")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[orderResponse](t, resp)
	assert.Equal(t, "shipped", out.Status)
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPatch, "/orders/some-id/status",
		map[string]any{"status": "teleported"}, "admin-key")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	out := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "invalid_status", out.Code)
}

func TestUpdateOrderStatus_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPatch, "/orders/ghost/status",
		map[string]any{"status": "paid"}, "admin-key")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminUpsertProduct(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"id": "p9", "name": "Termo", "price": 25000.0, "stock": 10, "category": "Accesorios"}
	resp := env.do(t, http.MethodPost, "/products", body, "admin-key")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[productResponse](t, resp)
	assert.Equal(t, "accesorios", out.Category)
	assert.Equal(t, 10, env.products.items["p9"].Stock)
}

func TestAdminUpsertProduct_Invalid(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/products", map[string]any{"name": ""}, "admin-key")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
