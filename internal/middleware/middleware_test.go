package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"bebamart/internal/domain"
	"bebamart/internal/testutil"
	"bebamart/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "middleware-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func bearer(t *testing.T, u domain.User) string {
	t.Helper()
	tok, err := utils.GenerateJWT(u.ID, u.Role, secret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func serve(r *gin.Engine, method, path, auth string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(secret), func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": c.GetString(ContextRole)})
	})
	user := domain.User{ID: 7, Role: domain.RoleBuyer}

	rec := serve(r, http.MethodGet, "/me", bearer(t, user))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"buyer"}`, rec.Body.String())

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Token abc",
		"wrong secret": "Bearer " + mustToken(t, "other-secret"),
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(r, http.MethodGet, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func mustToken(t *testing.T, key string) string {
	t.Helper()
	tok, err := utils.GenerateJWT(1, domain.RoleBuyer, key, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAdminOnlyMiddleware_ChecksDatabaseRole(t *testing.T) {
	db := testutil.NewDB(t)
	admin, _ := testutil.CreateUser(t, db, "Admin", domain.RoleAdmin)
	buyer, _ := testutil.CreateUser(t, db, "Grace", domain.RoleBuyer)

	r := gin.New()
	r.GET("/admin", JWTAuthMiddleware(secret), AdminOnlyMiddleware(db), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin", bearer(t, admin)).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", bearer(t, buyer)).Code)

	// The role claim alone is not trusted
	forged := buyer
	forged.Role = domain.RoleAdmin
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", bearer(t, forged)).Code)
}

func TestIsAdmin_FollowsDatabaseRole(t *testing.T) {
	db := testutil.NewDB(t)
	admin, _ := testutil.CreateUser(t, db, "Admin", domain.RoleAdmin)

	r := gin.New()
	r.GET("/whoami", JWTAuthMiddleware(secret), func(c *gin.Context) {
		first := IsAdmin(c, db)
		second := IsAdmin(c, db)
		c.JSON(http.StatusOK, gin.H{"admin": first && second})
	})
	auth := bearer(t, admin)

	assert.JSONEq(t, `{"admin":true}`, serve(r, http.MethodGet, "/whoami", auth).Body.String())

	require.NoError(t, db.Model(&admin).Update("role", domain.RoleBuyer).Error)
	assert.JSONEq(t, `{"admin":false}`, serve(r, http.MethodGet, "/whoami", auth).Body.String(),
		"a demoted admin keeps the token claim but loses admin rights")
}

func TestVendorMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	buyer, _ := testutil.CreateBuyer(t, db, "Grace", 0)
	vendorUser, profile, _ := testutil.CreateVendor(t, db, "Kato")

	r := gin.New()
	r.GET("/vendor", JWTAuthMiddleware(secret), VendorMiddleware(db), func(c *gin.Context) {
		p, ok := VendorProfile(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": p.ID})
	})

	rec := serve(r, http.MethodGet, "/vendor", bearer(t, vendorUser))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":`)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/vendor", bearer(t, buyer)).Code)

	require.NoError(t, db.Model(&profile).Update("vetting_status", domain.VettingRejected).Error)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/vendor", bearer(t, vendorUser)).Code)
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 2})
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "other clients keep their own bucket")

	clock = clock.Add(time.Second)
	assert.True(t, rl.allow("10.0.0.1"), "one token refills per second")

	clock = clock.Add(time.Hour)
	rl.allow("10.0.0.3")
	rl.mu.Lock()
	_, stale := rl.visitors["10.0.0.2"]
	rl.mu.Unlock()
	assert.False(t, stale, "idle clients are evicted")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1})
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", "").Code)
	rec := serve(r, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func idempotentRouter(db *gorm.DB, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	g := r.Group("", JWTAuthMiddleware(secret), Idempotency(db))
	g.POST("/pay", handler)
	g.POST("/other", handler)
	g.GET("/pay", handler)
	return r
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	db := testutil.NewDB(t)
	user, _ := testutil.CreateUser(t, db, "Grace", domain.RoleBuyer)
	calls := 0
	r := idempotentRouter(db, func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})
	auth := bearer(t, user)

	first := serve(r, http.MethodPost, "/pay", auth, IdempotencyHeader, "k-1")
	second := serve(r, http.MethodPost, "/pay", auth, IdempotencyHeader, "k-1")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, `{"call":1}`, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.Equal(t, 1, calls)

	mismatch := serve(r, http.MethodPost, "/other", auth, IdempotencyHeader, "k-1")
	assert.Equal(t, http.StatusBadRequest, mismatch.Code)

	serve(r, http.MethodPost, "/pay", auth)
	serve(r, http.MethodGet, "/pay", auth, IdempotencyHeader, "k-2")
	assert.Equal(t, 3, calls, "requests without a key and GETs are never replayed")

	other, _ := testutil.CreateUser(t, db, "Kato", domain.RoleBuyer)
	serve(r, http.MethodPost, "/pay", bearer(t, other), IdempotencyHeader, "k-1")
	assert.Equal(t, 4, calls, "keys are scoped per user")
}

func TestIdempotency_ServerErrorsAreRetried(t *testing.T) {
	db := testutil.NewDB(t)
	user, _ := testutil.CreateUser(t, db, "Grace", domain.RoleBuyer)
	calls := 0
	r := idempotentRouter(db, func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"call": calls})
	})
	auth := bearer(t, user)

	assert.Equal(t, http.StatusInternalServerError, serve(r, http.MethodPost, "/pay", auth, IdempotencyHeader, "k-1").Code)
	rec := serve(r, http.MethodPost, "/pay", auth, IdempotencyHeader, "k-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Idempotent-Replay"))
	assert.Equal(t, 2, calls)
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	db := testutil.NewDB(t)
	user, _ := testutil.CreateUser(t, db, "Grace", domain.RoleBuyer)
	calls := 0
	r := gin.New()
	r.Use(gin.Recovery())
	g := r.Group("", JWTAuthMiddleware(secret), Idempotency(db))
	g.POST("/pay", func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("gateway client blew up")
		}
		c.JSON(http.StatusOK, gin.H{"call": calls})
	})
	auth := bearer(t, user)

	assert.Equal(t, http.StatusInternalServerError, serve(r, http.MethodPost, "/pay", auth, IdempotencyHeader, "k-1").Code)

	var left int64
	require.NoError(t, db.Model(&domain.IdempotencyRecord{}).Count(&left).Error)
	assert.Zero(t, left)

	rec := serve(r, http.MethodPost, "/pay", auth, IdempotencyHeader, "k-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"call":2}`, rec.Body.String())
}
