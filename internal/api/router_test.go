package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"bebamart/internal/app"
	"bebamart/internal/config"
	"bebamart/internal/domain"
	"bebamart/internal/metrics"
	"bebamart/internal/middleware"
	"bebamart/internal/testutil"
	"bebamart/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type server struct {
	db     *gorm.DB
	app    *app.App
	router *gin.Engine
}

func newServer(t *testing.T, tweak ...func(*config.Config)) *server {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:         testSecret,
		JWTTTL:            time.Hour,
		Currency:          "UGX",
		TaxRate:           "0",
		AuthRatePerMinute: 600,
		AuthRateBurst:     100,
	}
	for _, fn := range tweak {
		fn(cfg)
	}
	db := testutil.NewDB(t)
	a, err := app.New(cfg, db, nil, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	return &server{db: db, app: a, router: NewRouter(a)}
}

func token(t *testing.T, u domain.User) string {
	t.Helper()
	tok, err := utils.GenerateJWT(u.ID, u.Role, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func (s *server) do(t *testing.T, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, "/api/v1"+c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func id(t *testing.T, v any) uint {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected an object, got %T", v)
	n, ok := m["id"].(float64)
	require.True(t, ok, "object has no id")
	return uint(n)
}

func TestAuth_RegisterLoginAndCurrentUser(t *testing.T) {
	s := newServer(t)

	rec, body := s.do(t, call{method: http.MethodPost, path: "/auth/register", body: gin.H{
		"name": "Kato Traders", "email": "Kato@Example.com", "phone": "+256700000001",
		"password": "mango-season", "role": domain.RoleVendorLocal,
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])

	var profile domain.VendorProfile
	require.NoError(t, s.db.Where("business_name = ?", "Kato Traders").First(&profile).Error)
	assert.Equal(t, domain.VendorTypeLocalRetail, profile.VendorType)
	assert.Equal(t, "Kampala", profile.City)
	var wallets int64
	require.NoError(t, s.db.Model(&domain.Wallet{}).Where("user_id = ?", profile.UserID).Count(&wallets).Error)
	assert.Equal(t, int64(1), wallets)

	rec, body = s.do(t, call{method: http.MethodPost, path: "/auth/login", body: gin.H{
		"email": "kato@example.com", "password": "mango-season",
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)

	rec, body = s.do(t, call{method: http.MethodGet, path: "/user", token: tok})
	require.Equal(t, http.StatusOK, rec.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "kato@example.com", user["email"])
	assert.NotNil(t, user["vendor_profile"])
	assert.NotContains(t, user, "password")

	rec, _ = s.do(t, call{method: http.MethodPost, path: "/auth/login", body: gin.H{
		"email": "kato@example.com", "password": "wrong-password",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RegisterValidation(t *testing.T) {
	s := newServer(t)
	base := gin.H{"name": "Grace", "email": "grace@example.com", "phone": "+256700000002", "password": "long-enough"}
	with := func(k string, v any) gin.H {
		out := gin.H{}
		for key, val := range base {
			out[key] = val
		}
		out[k] = v
		return out
	}

	cases := map[string]gin.H{
		"admin role":      with("role", domain.RoleAdmin),
		"short password":  with("password", "short"),
		"bad email":       with("email", "grace"),
		"email no host":   with("email", "grace@"),
		"bad phone":       with("phone", "call me"),
		"phone too short": with("phone", "+2567"),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			rec, body := s.do(t, call{method: http.MethodPost, path: "/auth/register", body: payload})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "validation_error", body["code"])
		})
	}

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/auth/register", body: base})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodPost, path: "/auth/register", body: with("phone", "+256700000003")})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate email")
}

func TestAuth_RateLimited(t *testing.T) {
	s := newServer(t, func(cfg *config.Config) {
		cfg.AuthRatePerMinute = 1
		cfg.AuthRateBurst = 1
	})
	login := call{method: http.MethodPost, path: "/auth/login", body: gin.H{"email": "x@example.com", "password": "whatever1"}}

	rec, _ := s.do(t, login)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, body := s.do(t, login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", body["code"])
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newServer(t)
	buyer, _ := testutil.CreateBuyer(t, s.db, "Grace", 0)

	rec, body := s.do(t, call{method: http.MethodGet, path: "/wallet"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/vendor/dashboard", token: token(t, buyer)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodGet, path: "/admin/users", token: token(t, buyer)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrders_PlaceShipAndConfirm(t *testing.T) {
	s := newServer(t)
	buyer, buyerWallet := testutil.CreateBuyer(t, s.db, "Grace", 50000)
	vendorUser, vendor, vendorWallet := testutil.CreateVendor(t, s.db, "Kato")
	listing := testutil.CreateListing(t, s.db, vendor.ID, "Kitenge", 12000, 3)
	bt, vt := token(t, buyer), token(t, vendorUser)

	rec, _ := s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/cart/add/%d", listing.ID), token: bt, body: gin.H{"quantity": 2}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body := s.do(t, call{method: http.MethodGet, path: "/orders/checkout", token: bt})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["can_afford"])

	rec, body = s.do(t, call{method: http.MethodPost, path: "/orders/place", token: bt, body: gin.H{"shipping_address": "Plot 4, Kampala Road"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orders := body["orders"].([]any)
	require.Len(t, orders, 1)
	orderID := id(t, orders[0])

	w := testutil.LoadWallet(t, s.db, buyerWallet.ID)
	assert.Equal(t, int64(26000), w.Balance)
	assert.Equal(t, int64(24000), w.LockedBalance)

	path := func(suffix string) string { return fmt.Sprintf("/orders/%d%s", orderID, suffix) }
	rec, _ = s.do(t, call{method: http.MethodPost, path: path("/pay-with-wallet"), token: bt})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, status := range []string{"processing", "shipped"} {
		rec, _ = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/vendor/orders/%d/status", orderID), token: vt, body: gin.H{"status": status}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec, body = s.do(t, call{method: http.MethodPost, path: path("/confirm-delivery"), token: bt})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "delivered", body["order"].(map[string]any)["status"])
	assert.Equal(t, int64(24000), testutil.LoadWallet(t, s.db, vendorWallet.ID).Balance)
	assert.Zero(t, testutil.LoadWallet(t, s.db, buyerWallet.ID).LockedBalance)

	rec, body = s.do(t, call{method: http.MethodPost, path: path("/confirm-delivery"), token: bt})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", body["code"])

	rec, body = s.do(t, call{method: http.MethodGet, path: "/vendor/dashboard", token: vt})
	require.Equal(t, http.StatusOK, rec.Code)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["delivered_orders"])

	rec, _ = s.do(t, call{method: http.MethodGet, path: path(""), token: vt})
	assert.Equal(t, http.StatusNotFound, rec.Code, "vendors read orders through /vendor/orders")
}

func TestOrders_InsufficientFunds(t *testing.T) {
	s := newServer(t)
	buyer, _ := testutil.CreateBuyer(t, s.db, "Grace", 1000)
	_, vendor, _ := testutil.CreateVendor(t, s.db, "Kato")
	listing := testutil.CreateListing(t, s.db, vendor.ID, "Radio", 25000, 1)
	testutil.AddToCart(t, s.db, buyer.ID, listing.ID, 1)

	rec, body := s.do(t, call{method: http.MethodPost, path: "/orders/place", token: token(t, buyer), body: gin.H{"shipping_address": "Gulu"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_funds", body["code"])

	var n int64
	require.NoError(t, s.db.Model(&domain.CartItem{}).Where("user_id = ?", buyer.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n, "cart survives a failed placement")
}

func TestDisputes_OpenAndResolveRefund(t *testing.T) {
	s := newServer(t)
	buyer, buyerWallet := testutil.CreateBuyer(t, s.db, "Grace", 30000)
	_, vendor, vendorWallet := testutil.CreateVendor(t, s.db, "Kato")
	admin, _ := testutil.CreateUser(t, s.db, "Admin", domain.RoleAdmin)
	listing := testutil.CreateListing(t, s.db, vendor.ID, "Sandals", 10000, 5)
	testutil.AddToCart(t, s.db, buyer.ID, listing.ID, 1)
	bt, at := token(t, buyer), token(t, admin)

	_, body := s.do(t, call{method: http.MethodPost, path: "/orders/place", token: bt, body: gin.H{"shipping_address": "Jinja"}})
	orderID := id(t, body["orders"].([]any)[0])
	rec, _ := s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/orders/%d/pay-with-wallet", orderID), token: bt})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/disputes/%d", orderID), token: bt, body: gin.H{"reason": "Wrong size", "note": "Ordered 42"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	disputeID := id(t, body["dispute"])

	rec, _ = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/disputes/%d/add-evidence", disputeID), token: bt, body: gin.H{"attachment_url": "https://files.example.com/shoe.jpg"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resolve := call{method: http.MethodPost, path: fmt.Sprintf("/disputes/%d/resolve", disputeID), body: gin.H{"outcome": "refund"}}
	resolve.token = bt
	rec, _ = s.do(t, resolve)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/admin/disputes/%d/review", disputeID), token: at})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resolve.token = at
	rec, body = s.do(t, resolve)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "resolved", body["dispute"].(map[string]any)["status"])

	rec, body = s.do(t, resolve)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_resolved", body["code"])

	w := testutil.LoadWallet(t, s.db, buyerWallet.ID)
	assert.Equal(t, int64(30000), w.Balance)
	assert.Zero(t, w.LockedBalance)
	assert.Zero(t, testutil.LoadWallet(t, s.db, vendorWallet.ID).Balance)

	rec, body = s.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/disputes/%d", disputeID), token: bt})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["dispute"].(map[string]any)["evidence"], 2)

	rec, body = s.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/admin/wallets/%d/reconcile", buyerWallet.ID), token: at})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["balanced"])
}

func TestDisputes_DemotedAdminLosesAccess(t *testing.T) {
	s := newServer(t)
	buyer, _ := testutil.CreateBuyer(t, s.db, "Grace", 30000)
	_, vendor, _ := testutil.CreateVendor(t, s.db, "Kato")
	admin, _ := testutil.CreateUser(t, s.db, "Admin", domain.RoleAdmin)
	listing := testutil.CreateListing(t, s.db, vendor.ID, "Sandals", 10000, 5)
	testutil.AddToCart(t, s.db, buyer.ID, listing.ID, 1)
	bt, at := token(t, buyer), token(t, admin)

	_, body := s.do(t, call{method: http.MethodPost, path: "/orders/place", token: bt, body: gin.H{"shipping_address": "Jinja"}})
	orderID := id(t, body["orders"].([]any)[0])
	s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/orders/%d/pay-with-wallet", orderID), token: bt})
	rec, body := s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/disputes/%d", orderID), token: bt, body: gin.H{"reason": "Never arrived"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	disputePath := fmt.Sprintf("/disputes/%d", id(t, body["dispute"]))

	rec, _ = s.do(t, call{method: http.MethodGet, path: disputePath, token: at})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, s.db.Model(&admin).Update("role", domain.RoleBuyer).Error)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/admin/disputes", token: at})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodGet, path: disputePath, token: at})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodPost, path: disputePath + "/add-evidence", token: at, body: gin.H{"note": "Checked courier logs"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWallet_DepositReplaysIdempotentRequest(t *testing.T) {
	s := newServer(t)
	buyer, wallet := testutil.CreateBuyer(t, s.db, "Grace", 0)
	deposit := call{
		method:  http.MethodPost,
		path:    "/wallet/deposit",
		token:   token(t, buyer),
		body:    gin.H{"amount": 5000, "reference": "MM-0001"},
		headers: map[string]string{middleware.IdempotencyHeader: "deposit-1"},
	}

	first, _ := s.do(t, deposit)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second, _ := s.do(t, deposit)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.Equal(t, int64(5000), testutil.LoadWallet(t, s.db, wallet.ID).Balance)
	assert.Equal(t, int64(5000), testutil.LedgerSum(t, s.db, wallet.ID))

	rec, body := s.do(t, call{method: http.MethodGet, path: "/wallet/transactions", token: deposit.token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total"])

	rec, body = s.do(t, call{method: http.MethodPost, path: "/wallet/withdraw", token: deposit.token, body: gin.H{"amount": 9000, "destination": "+256700000009"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_funds", body["code"])
}

func TestMarketplace_HidesRejectedVendors(t *testing.T) {
	s := newServer(t)
	admin, _ := testutil.CreateUser(t, s.db, "Admin", domain.RoleAdmin)
	vendorUser, vendor, _ := testutil.CreateVendor(t, s.db, "Kato")
	listing := testutil.CreateListing(t, s.db, vendor.ID, "Basket", 8000, 2)

	rec, body := s.do(t, call{method: http.MethodGet, path: "/marketplace?search=bask"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total"])

	rec, _ = s.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/marketplace/%d", listing.ID)})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodGet, path: "/marketplace?sort_by=password"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/admin/vendors/%d/vetting", vendor.ID), token: token(t, admin), body: gin.H{"status": "rejected"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, body = s.do(t, call{method: http.MethodGet, path: "/marketplace"})
	assert.Equal(t, float64(0), body["total"])
	rec, _ = s.do(t, call{method: http.MethodGet, path: "/vendor/listings", token: token(t, vendorUser)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVendor_ListingCRUD(t *testing.T) {
	s := newServer(t)
	vendorUser, _, _ := testutil.CreateVendor(t, s.db, "Kato")
	vt := token(t, vendorUser)

	rec, body := s.do(t, call{method: http.MethodPost, path: "/vendor/listings", token: vt, body: gin.H{"title": "Jerrycan", "price": 7000, "stock": 10}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	listingID := id(t, body["listing"])

	rec, body = s.do(t, call{method: http.MethodPut, path: fmt.Sprintf("/vendor/listings/%d", listingID), token: vt, body: gin.H{"price": 6500}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(6500), body["listing"].(map[string]any)["price"])

	rec, body = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/vendor/listings/%d/toggle-status", listingID), token: vt})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["listing"].(map[string]any)["is_active"])

	rec, _ = s.do(t, call{method: http.MethodDelete, path: fmt.Sprintf("/vendor/listings/%d", listingID), token: vt})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/vendor/listings/%d", listingID), token: vt})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodGet, path: "/vendor/listings/abc", token: vt})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newServer(t)

	rec, body := s.do(t, call{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	s.router.ServeHTTP(mrec, req)
	require.Equal(t, http.StatusOK, mrec.Code)
	assert.Contains(t, mrec.Body.String(), "bebamart_http_requests_total")
}

func TestWishlist_ToggleCountAndMoveToCart(t *testing.T) {
	s := newServer(t)
	buyer, _ := testutil.CreateBuyer(t, s.db, "Grace", 0)
	_, vendor, _ := testutil.CreateVendor(t, s.db, "Kato")
	listing := testutil.CreateListing(t, s.db, vendor.ID, "Kitenge", 12000, 3)
	bt := token(t, buyer)
	count := func() float64 {
		rec, body := s.do(t, call{method: http.MethodGet, path: "/wishlist/count", token: bt})
		require.Equal(t, http.StatusOK, rec.Code)
		return body["count"].(float64)
	}

	rec, body := s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/wishlist/toggle/%d", listing.ID), token: bt})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["in_wishlist"])
	assert.Equal(t, float64(1), count())

	rec, body = s.do(t, call{method: http.MethodGet, path: "/wishlist", token: bt})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["wishlists"].([]any), 1)

	rec, body = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/wishlist/move-to-cart/%d", listing.ID), token: bt, body: gin.H{"quantity": 2}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), body["item"].(map[string]any)["quantity"])
	assert.Equal(t, float64(0), count())

	rec, body = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/wishlist/move-to-cart/%d", listing.ID), token: bt})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["code"])

	rec, _ = s.do(t, call{method: http.MethodDelete, path: fmt.Sprintf("/wishlist/remove/%d", listing.ID), token: bt})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodPost, path: "/wishlist/add/999", token: bt})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddresses_DefaultShipsTheOrder(t *testing.T) {
	s := newServer(t)
	buyer, _ := testutil.CreateBuyer(t, s.db, "Grace", 50000)
	other, _ := testutil.CreateBuyer(t, s.db, "Okello", 0)
	_, vendor, _ := testutil.CreateVendor(t, s.db, "Kato")
	listing := testutil.CreateListing(t, s.db, vendor.ID, "Kitenge", 12000, 3)
	bt := token(t, buyer)
	home := gin.H{"label": "Home", "recipient_name": "Grace", "phone": "+256700000001", "address_line": "Plot 4, Ntinda Road", "city": "Kampala"}

	rec, body := s.do(t, call{method: http.MethodPost, path: "/addresses", token: bt, body: gin.H{"recipient_name": "Grace", "phone": "call me", "address_line": "x", "city": "y"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["code"])

	rec, body = s.do(t, call{method: http.MethodPost, path: "/addresses", token: bt, body: home})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	homeID := id(t, body["address"])
	assert.Equal(t, true, body["address"].(map[string]any)["is_default"])

	office := gin.H{"label": "Office", "recipient_name": "Grace", "phone": "+256700000001", "address_line": "Acacia Mall", "city": "Kampala"}
	rec, body = s.do(t, call{method: http.MethodPost, path: "/addresses", token: bt, body: office})
	require.Equal(t, http.StatusCreated, rec.Code)
	officeID := id(t, body["address"])

	rec, _ = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/addresses/%d/set-default", officeID), token: bt})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, call{method: http.MethodPost, path: fmt.Sprintf("/addresses/%d/set-default", officeID), token: token(t, other)})
	assert.Equal(t, http.StatusNotFound, rec.Code, "other buyers cannot touch the address")

	rec, body = s.do(t, call{method: http.MethodGet, path: "/addresses", token: bt})
	require.Equal(t, http.StatusOK, rec.Code)
	list := body["addresses"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, officeID, id(t, list[0]), "default first")

	testutil.AddToCart(t, s.db, buyer.ID, listing.ID, 1)
	rec, body = s.do(t, call{method: http.MethodPost, path: "/orders/place", token: bt})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := body["orders"].([]any)[0].(map[string]any)
	assert.Equal(t, "Grace, Acacia Mall, Kampala, Uganda (+256700000001)", placed["shipping_address"])

	testutil.AddToCart(t, s.db, buyer.ID, listing.ID, 1)
	rec, body = s.do(t, call{method: http.MethodPost, path: "/orders/place", token: bt, body: gin.H{"address_id": homeID}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed = body["orders"].([]any)[0].(map[string]any)
	assert.Equal(t, "Grace, Plot 4, Ntinda Road, Kampala, Uganda (+256700000001)", placed["shipping_address"])

	rec, _ = s.do(t, call{method: http.MethodDelete, path: fmt.Sprintf("/addresses/%d", homeID), token: bt})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOrders_PlaceNeedsAnAddress(t *testing.T) {
	s := newServer(t)
	buyer, _ := testutil.CreateBuyer(t, s.db, "Grace", 50000)
	_, vendor, _ := testutil.CreateVendor(t, s.db, "Kato")
	listing := testutil.CreateListing(t, s.db, vendor.ID, "Kitenge", 12000, 3)
	testutil.AddToCart(t, s.db, buyer.ID, listing.ID, 1)

	rec, body := s.do(t, call{method: http.MethodPost, path: "/orders/place", token: token(t, buyer)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body["code"])
}
