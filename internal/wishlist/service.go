package wishlist

import (
	"context"
	"errors"

	"bebamart/internal/cart"
	"bebamart/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service manages per-user wishlists.
type Service struct {
	db    *gorm.DB
	carts *cart.Service
}

// NewService creates a wishlist service moving items into carts.
func NewService(db *gorm.DB, carts *cart.Service) *Service {
	return &Service{db: db, carts: carts}
}

// List returns the wishlist with its listings, most recent first.
func (s *Service) List(ctx context.Context, userID uint) ([]domain.WishlistItem, error) {
	var items []domain.WishlistItem
	err := s.db.WithContext(ctx).Preload("Listing").
		Where("user_id = ?", userID).Order("id DESC").Find(&items).Error
	return items, err
}

// Count returns the number of wishlisted listings.
func (s *Service) Count(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.WishlistItem{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// Add wishlists an active listing. Adding a listing twice keeps one item.
func (s *Service) Add(ctx context.Context, userID, listingID uint) (*domain.WishlistItem, error) {
	var item *domain.WishlistItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := activeListing(tx, listingID); err != nil {
			return err
		}
		var err error
		item, err = add(tx, userID, listingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove drops a listing from the wishlist.
func (s *Service) Remove(ctx context.Context, userID, listingID uint) error {
	removed, err := remove(s.db.WithContext(ctx), userID, listingID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.NotFound("wishlist item")
	}
	return nil
}

// Toggle removes a wishlisted listing or adds one that is not, reporting
// whether the listing is wishlisted afterwards.
func (s *Service) Toggle(ctx context.Context, userID, listingID uint) (bool, error) {
	added := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := remove(tx, userID, listingID)
		if err != nil || removed {
			return err
		}
		if err := activeListing(tx, listingID); err != nil {
			return err
		}
		if _, err := add(tx, userID, listingID); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

// MoveToCart adds quantity units of a wishlisted listing to the cart and
// then drops it from the wishlist. The cart checks the listing is active
// and in stock; on failure the wishlist is left as it was.
func (s *Service) MoveToCart(ctx context.Context, userID, listingID uint, quantity int) (*domain.CartItem, error) {
	var item domain.WishlistItem
	if err := s.db.WithContext(ctx).Where("user_id = ? AND listing_id = ?", userID, listingID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("wishlist item")
		}
		return nil, err
	}
	added, err := s.carts.Add(ctx, userID, listingID, quantity)
	if err != nil {
		return nil, err
	}
	if _, err := remove(s.db.WithContext(ctx), userID, listingID); err != nil {
		// The units are already in the cart
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,
			"listing_id": listingID,
			"error":      err.Error(),
		}).Warn("Failed to drop moved wishlist item")
	}
	return added, nil
}

// add inserts the item, returning the stored one when it already exists.
func add(tx *gorm.DB, userID, listingID uint) (*domain.WishlistItem, error) {
	item := domain.WishlistItem{UserID: userID, ListingID: listingID}
	err := tx.Create(&item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		if err := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func remove(db *gorm.DB, userID, listingID uint) (bool, error) {
	res := db.Where("user_id = ? AND listing_id = ?", userID, listingID).Delete(&domain.WishlistItem{})
	return res.RowsAffected > 0, res.Error
}

func activeListing(tx *gorm.DB, listingID uint) error {
	var listing domain.Listing
	if err := tx.Select("id").Where("id = ? AND is_active = ?", listingID, true).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("listing")
		}
		return err
	}
	return nil
}
