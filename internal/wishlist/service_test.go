package wishlist

import (
	"context"
	"testing"

	"bebamart/internal/cart"
	"bebamart/internal/domain"
	"bebamart/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	carts   *cart.Service
	buyer   domain.User
	listing domain.Listing
}

func newFixture(t *testing.T, stock int) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	carts := cart.NewService(db, cart.Rules{})
	f := fixture{db: db, svc: NewService(db, carts), carts: carts}
	f.buyer, _ = testutil.CreateBuyer(t, db, "Grace", 0)
	_, vendor, _ := testutil.CreateVendor(t, db, "Kato")
	f.listing = testutil.CreateListing(t, db, vendor.ID, "Kitenge fabric", 25000, stock)
	return f
}

func (f fixture) count(t *testing.T) int64 {
	t.Helper()
	n, err := f.svc.Count(context.Background(), f.buyer.ID)
	require.NoError(t, err)
	return n
}

func TestService_AddIsIdempotent(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	first, err := f.svc.Add(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	again, err := f.svc.Add(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.EqualValues(t, 1, f.count(t))

	items, err := f.svc.List(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Listing)
	assert.Equal(t, "Kitenge fabric", items[0].Listing.Title)

	_, err = f.svc.Add(ctx, f.buyer.ID, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ToggleAndRemove(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	added, err := f.svc.Toggle(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	assert.True(t, added)
	assert.EqualValues(t, 1, f.count(t))

	added, err = f.svc.Toggle(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	assert.False(t, added)
	assert.EqualValues(t, 0, f.count(t))

	assert.ErrorIs(t, f.svc.Remove(ctx, f.buyer.ID, f.listing.ID), domain.ErrNotFound)

	require.NoError(t, f.db.Model(&f.listing).Update("is_active", false).Error)
	_, err = f.svc.Toggle(ctx, f.buyer.ID, f.listing.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "inactive listings cannot be wishlisted")
}

func TestService_ToggleRemovesInactiveListing(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&f.listing).Update("is_active", false).Error)

	added, err := f.svc.Toggle(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	assert.False(t, added)
	assert.EqualValues(t, 0, f.count(t))
}

func TestService_MoveToCart(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.MoveToCart(ctx, f.buyer.ID, f.listing.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound, "not wishlisted")

	_, err = f.svc.Add(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)

	_, err = f.svc.MoveToCart(ctx, f.buyer.ID, f.listing.ID, 4)
	assert.ErrorIs(t, err, domain.ErrValidation, "more than in stock")
	assert.EqualValues(t, 1, f.count(t), "failed move keeps the wishlist item")

	item, err := f.svc.MoveToCart(ctx, f.buyer.ID, f.listing.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.EqualValues(t, 0, f.count(t))

	items, err := f.carts.Items(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, f.listing.ID, items[0].ListingID)
}
