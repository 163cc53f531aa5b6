package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lokmen200/soukstyle/pkg/auth"
	"github.com/lokmen200/soukstyle/pkg/config"
	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/notify"
	"github.com/lokmen200/soukstyle/pkg/repository/memory"
	"github.com/lokmen200/soukstyle/pkg/service"
	"github.com/lokmen200/soukstyle/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testGateway struct {
	gw    *Gateway
	store *memory.Store
	hub   *notify.Hub
	cfg   *config.Config
}

func newTestGateway(t *testing.T, tweak func(*config.Config)) *testGateway {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0},
		RateLimit: config.RateLimitConfig{Requests: 1000, Window: time.Minute},
		Uploads:   config.UploadsConfig{Dir: t.TempDir(), URLPrefix: "/uploads", MaxBytes: 1 << 20},
		Auth:      config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, AdminEmails: []string{"admin@souk.dz"}},
		Orders:    config.OrdersConfig{LowStockThreshold: 2, CancelWindow: 24 * time.Hour},
	}
	if tweak != nil {
		tweak(cfg)
	}

	store := memory.NewStore()
	hub := notify.NewHub()
	dispatcher, err := notify.NewDispatcher(actor.NewActorSystem(), notify.Config{
		Notifications: store.Notifications(),
		Mailer:        notify.NewLogMailer(zap.NewNop()),
		Broadcaster:   hub,
		Logger:        zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dispatcher.Stop() })

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	svc := service.New(service.Deps{
		Repos: service.Repositories{
			Users:         store.Users(),
			Shops:         store.Shops(),
			Products:      store.Products(),
			Orders:        store.Orders(),
			Reviews:       store.Reviews(),
			Coupons:       store.Coupons(),
			Carts:         store.Carts(),
			Notifications: store.Notifications(),
			Categories:    store.Categories(),
			Audit:         store,
		},
		Notifier: dispatcher,
		Tokens:   tokens,
		Logger:   zap.NewNop(),
		Options: service.Options{
			LowStockThreshold: cfg.Orders.LowStockThreshold,
			CancelWindow:      cfg.Orders.CancelWindow,
			AdminEmails:       cfg.Auth.AdminEmails,
		},
	})
	uploader, err := storage.NewLocal(cfg.Uploads.Dir, cfg.Uploads.URLPrefix)
	require.NoError(t, err)

	gw := NewGateway(cfg, Deps{
		Services:    svc,
		Tokens:      tokens,
		Uploader:    uploader,
		Broadcaster: hub,
	}, zap.NewNop())
	gw.SetupRoutes()

	return &testGateway{gw: gw, store: store, hub: hub, cfg: cfg}
}

func (tg *testGateway) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	tg.gw.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type sessionResponse struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (tg *testGateway) register(t *testing.T, name string) sessionResponse {
	t.Helper()
	rec := tg.do(t, http.MethodPost, "/api/users/register", "", jsonMap{
		"name":     name,
		"email":    name + "@souk.dz",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[sessionResponse](t, rec)
}

type jsonMap = map[string]interface{}

type idResponse struct {
	ID string `json:"id"`
}

// sellerWithProduct registers a seller, an approved shop and one product.
func (tg *testGateway) sellerWithProduct(t *testing.T, admin sessionResponse, stock int) (seller sessionResponse, shopID, productID string) {
	t.Helper()
	seller = tg.register(t, "seller")

	rec := tg.do(t, http.MethodPost, "/api/shops", seller.Token, jsonMap{"name": "Caftan House", "wilaya": "Alger"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	shopID = decode[idResponse](t, rec).ID

	rec = tg.do(t, http.MethodPut, "/api/admin/shops/"+shopID+"/approve", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = tg.do(t, http.MethodPost, "/api/products", seller.Token, jsonMap{"name": "Caftan", "price": 120.5, "stock": stock})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	productID = decode[idResponse](t, rec).ID
	return seller, shopID, productID
}

func TestHealth(t *testing.T) {
	tg := newTestGateway(t, nil)
	rec := tg.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestAuthFlow(t *testing.T) {
	tg := newTestGateway(t, nil)

	sess := tg.register(t, "amina")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "buyer", sess.User.Role)

	rec := tg.do(t, http.MethodPost, "/api/users/register", "", jsonMap{"name": "x", "email": "amina@souk.dz", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = tg.do(t, http.MethodPost, "/api/users/login", "", jsonMap{"email": "amina@souk.dz", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = tg.do(t, http.MethodPost, "/api/users/login", "", jsonMap{"identifier": "amina@souk.dz", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[sessionResponse](t, rec)

	rec = tg.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = tg.do(t, http.MethodGet, "/api/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("x-auth-token", login.Token)
	w := httptest.NewRecorder()
	tg.gw.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[jsonMap](t, w)
	assert.Equal(t, "amina@souk.dz", me["email"])
	assert.NotContains(t, me, "password_hash")
	assert.Contains(t, me, "delivery_rating")

	rec = tg.do(t, http.MethodGet, "/api/admin/users", login.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderFlow(t *testing.T) {
	tg := newTestGateway(t, nil)
	admin := tg.register(t, "admin")
	require.Equal(t, "admin", admin.User.Role)
	seller, shopID, productID := tg.sellerWithProduct(t, admin, 3)
	buyer := tg.register(t, "buyer")

	rec := tg.do(t, http.MethodPost, "/api/orders", buyer.Token, jsonMap{
		"shop_id":  shopID,
		"products": []jsonMap{{"product_id": productID, "quantity": 5}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = tg.do(t, http.MethodPost, "/api/orders", buyer.Token, jsonMap{
		"shop_id":  shopID,
		"products": []jsonMap{{"product_id": productID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[struct {
		ID     string  `json:"id"`
		Total  float64 `json:"total"`
		Status string  `json:"status"`
	}](t, rec)
	assert.Equal(t, 241.0, order.Total)
	assert.Equal(t, "Pending", order.Status)

	stranger := tg.register(t, "stranger")
	rec = tg.do(t, http.MethodGet, "/api/orders/"+order.ID, stranger.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = tg.do(t, http.MethodGet, "/api/orders/not-an-id", buyer.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = tg.do(t, http.MethodGet, "/api/orders/65f000000000000000000000", buyer.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = tg.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status", buyer.Token, jsonMap{"status": "Shipped"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = tg.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status", seller.Token, jsonMap{"status": "Shipped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = tg.do(t, http.MethodPut, "/api/orders/"+order.ID+"/cancel", buyer.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = tg.do(t, http.MethodPut, "/api/orders/"+order.ID+"/confirm-delivery", seller.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = tg.do(t, http.MethodPost, "/api/products/"+productID+"/review", buyer.Token, jsonMap{"order_id": order.ID, "rating": 4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = tg.do(t, http.MethodPost, "/api/products/"+productID+"/review", buyer.Token, jsonMap{"order_id": order.ID, "rating": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = tg.do(t, http.MethodPost, "/api/orders/"+order.ID+"/rate-buyer", seller.Token, jsonMap{"rating": 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = tg.do(t, http.MethodGet, "/api/reviews/product/"+productID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]jsonMap](t, rec), 1)

	rec = tg.do(t, http.MethodGet, "/api/orders/shop/"+shopID, seller.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]jsonMap](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0]["buyer_failed_delivery_rate"])

	rec = tg.do(t, http.MethodGet, "/api/admin/analytics", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 241.0, decode[jsonMap](t, rec)["total_sales"])
}

func TestProductListing(t *testing.T) {
	tg := newTestGateway(t, nil)
	admin := tg.register(t, "admin")
	_, _, productID := tg.sellerWithProduct(t, admin, 10)

	rec := tg.do(t, http.MethodGet, "/api/products?search=caf&minPrice=100&sort=-price&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Products []idResponse `json:"products"`
		Total    int64        `json:"total"`
	}](t, rec)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Products, 1)
	assert.Equal(t, productID, page.Products[0].ID)

	rec = tg.do(t, http.MethodGet, "/api/products?minPrice=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = tg.do(t, http.MethodGet, "/api/products?page=1000000000000000000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Products []jsonMap `json:"products"`
	}](t, rec).Products)

	rec = tg.do(t, http.MethodGet, "/api/products/trending", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	tg := newTestGateway(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Requests: 2, Window: time.Minute}
	})
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, tg.do(t, http.MethodGet, "/api/categories", "", nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, tg.do(t, http.MethodGet, "/api/categories", "", nil).Code)
	// health is outside the limited group
	assert.Equal(t, http.StatusOK, tg.do(t, http.MethodGet, "/health", "", nil).Code)
}

func TestLocalLimiter_WindowResets(t *testing.T) {
	l := NewLocalLimiter()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4", 3, time.Minute)
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "5.6.7.8", 3, time.Minute)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "1.2.3.4", 3, time.Minute)
	assert.True(t, ok)
}

func TestShopImageUpload(t *testing.T) {
	tg := newTestGateway(t, nil)
	admin := tg.register(t, "admin")
	seller, shopID, _ := tg.sellerWithProduct(t, admin, 1)

	upload := func(token, filename string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("logo", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake-png"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/shops/"+shopID+"/images", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		tg.gw.Handler().ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, upload(admin.Token, "logo.png").Code)
	assert.Equal(t, http.StatusBadRequest, upload(seller.Token, "logo.exe").Code)

	rec := upload(seller.Token, "logo.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logo, _ := decode[jsonMap](t, rec)["logo"].(string)
	require.True(t, strings.HasPrefix(logo, "/uploads/"), logo)

	rec = tg.do(t, http.MethodGet, logo, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake-png", rec.Body.String())
}

func TestOrderStream(t *testing.T) {
	tg := newTestGateway(t, nil)
	admin := tg.register(t, "admin")

	srv := httptest.NewServer(tg.gw.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/orders/stream?order=o-1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	// the subscription registers asynchronously, so publish until it lands
	ev := models.OrderStatusEvent{OrderID: "o-1", Status: models.OrderShipped}
	var got []string
	assert.Eventually(t, func() bool {
		_ = tg.hub.Publish(ctx, models.OrderStatusEvent{OrderID: "other"})
		_ = tg.hub.Publish(ctx, ev)
		for {
			select {
			case line := <-lines:
				got = append(got, line)
				if strings.HasPrefix(line, "data:") {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 20*time.Millisecond)

	require.NotEmpty(t, got)
	assert.Contains(t, got, "event:"+orderStatusEvent)
	data := got[len(got)-1]
	assert.Contains(t, data, `"order_id":"o-1"`)
	assert.NotContains(t, strings.Join(got, "\n"), `"other"`)
}
