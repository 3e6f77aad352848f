package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "DB_DRIVER", "CURRENCY", "SHIPPING_FLAT_FEE", "PENDING_ORDER_TTL", "TAX_RATE"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "UGX", cfg.Currency)
	assert.Equal(t, int64(5000), cfg.ShippingFlatFee)
	assert.Equal(t, "0", cfg.TaxRate)
	assert.Equal(t, 48*time.Hour, cfg.PendingOrderTTL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SHIPPING_FLAT_FEE", "2500")
	t.Setenv("PENDING_ORDER_TTL", "30m")
	t.Setenv("IS_PROD", "true")
	t.Setenv("DB_USER", "beba")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_NAME", "market")

	cfg := LoadConfig()

	assert.Equal(t, int64(2500), cfg.ShippingFlatFee)
	assert.Equal(t, 30*time.Minute, cfg.PendingOrderTTL)
	assert.True(t, cfg.IsProd)
	assert.Equal(t, "beba:secret@tcp(db:3307)/market?parseTime=true", cfg.DSN())
}

func TestLoadConfig_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("EXPIRY_INTERVAL", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 10*time.Minute, cfg.ExpiryInterval)
}
