package app

import (
	"context"
	"time"

	"bebamart/internal/address"
	"bebamart/internal/cart"
	"bebamart/internal/catalog"
	"bebamart/internal/config"
	"bebamart/internal/dispute"
	"bebamart/internal/domain"
	"bebamart/internal/escrow"
	"bebamart/internal/ledger"
	"bebamart/internal/metrics"
	"bebamart/internal/order"
	"bebamart/internal/payment"
	"bebamart/internal/utils"
	"bebamart/internal/wallet"
	"bebamart/internal/wishlist"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App holds the services behind the HTTP API.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Cache     *utils.Cache
	Metrics   *metrics.Metrics
	Ledger    ledger.Ledger
	Escrow    *escrow.Controller
	Carts     *cart.Service
	Wishlists *wishlist.Service
	Addresses *address.Service
	Orders    *order.Service
	Disputes  *dispute.Resolver
	Wallets   *wallet.Service
	Catalog   *catalog.Service
	Gateway   payment.Gateway
}

// Option adjusts how an App is built.
type Option func(*options)

type options struct {
	gateway payment.Gateway
	now     func() time.Time
}

// WithGateway replaces the manual payment gateway.
func WithGateway(gw payment.Gateway) Option {
	return func(o *options) { o.gateway = gw }
}

// WithClock overrides the time source of the order, escrow and dispute services.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New wires the services. rdb may be nil to run without a cache; m may be
// nil to skip metrics.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, m *metrics.Metrics, opts ...Option) (*App, error) {
	o := options{gateway: payment.NewManualGateway(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	rules, err := Rules(cfg)
	if err != nil {
		return nil, err
	}
	cache := utils.NewCache(rdb, 60*time.Second)
	l := ledger.New(m)
	esc := escrow.NewController(l, escrow.WithClock(o.now), escrow.WithMetrics(m))
	carts := cart.NewService(db, rules)

	return &App{
		Config:    cfg,
		DB:        db,
		Cache:     cache,
		Metrics:   m,
		Ledger:    l,
		Escrow:    esc,
		Carts:     carts,
		Wishlists: wishlist.NewService(db, carts),
		Addresses: address.NewService(db),
		Orders: order.NewService(db, esc, rules,
			order.WithClock(o.now), order.WithCurrency(cfg.Currency), order.WithMetrics(m)),
		Disputes: dispute.NewResolver(db, esc, dispute.WithClock(o.now), dispute.WithMetrics(m)),
		Wallets:  wallet.NewService(db, l, o.gateway, cache, cfg.Currency),
		Catalog:  catalog.NewService(db, cache),
		Gateway:  o.gateway,
	}, nil
}

// OrdersExpired drops the cached views made stale by the expiry worker: the
// marketplace, whose stock came back, and the wallets of the affected buyers.
func (a *App) OrdersExpired(ctx context.Context, expired []domain.Order) {
	a.Catalog.Invalidate(ctx)
	a.Wallets.Invalidate(ctx, buyerIDs(expired)...)
}

func buyerIDs(orders []domain.Order) []uint {
	seen := make(map[uint]bool, len(orders))
	var ids []uint
	for _, o := range orders {
		if !seen[o.BuyerID] {
			seen[o.BuyerID] = true
			ids = append(ids, o.BuyerID)
		}
	}
	return ids
}

// Rules builds the shipping and tax rules from configuration.
func Rules(cfg *config.Config) (cart.Rules, error) {
	tax, err := cart.NewPercentageTax(cfg.TaxRate)
	if err != nil {
		return cart.Rules{}, err
	}
	return cart.Rules{
		Shipping: cart.FlatShipping{Fee: cfg.ShippingFlatFee, FreeOver: cfg.FreeShippingOver},
		Tax:      tax,
	}, nil
}
