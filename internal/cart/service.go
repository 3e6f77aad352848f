package cart

import (
	"context"
	"errors"

	"bebamart/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service manages per-buyer cart state.
type Service struct {
	db    *gorm.DB
	rules Rules
}

// NewService creates a cart service pricing summaries with rules.
func NewService(db *gorm.DB, rules Rules) *Service {
	return &Service{db: db, rules: rules}
}

// Rules returns the rate rules used for pricing.
func (s *Service) Rules() Rules {
	return s.rules
}

// Add puts quantity units of an active listing in the cart, on top of any
// units already there.
func (s *Service) Add(ctx context.Context, userID, listingID uint, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, domain.Validationf("quantity must be positive")
	}
	var item domain.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := activeListing(tx, listingID)
		if err != nil {
			return err
		}
		err = tx.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&item).Error
		switch {
		case err == nil:
			item.Quantity += quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = domain.CartItem{UserID: userID, ListingID: listingID, Quantity: quantity}
		default:
			return err
		}
		if item.Quantity > listing.Stock {
			return domain.Validationf("only %d units of %q available", listing.Stock, listing.Title)
		}
		if item.ID == 0 {
			return tx.Create(&item).Error
		}
		return tx.Model(&item).Update("quantity", item.Quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetQuantity replaces the quantity of a listing already in the cart.
func (s *Service) SetQuantity(ctx context.Context, userID, listingID uint, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, domain.Validationf("quantity must be positive")
	}
	var item domain.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("cart item")
			}
			return err
		}
		listing, err := activeListing(tx, listingID)
		if err != nil {
			return err
		}
		if quantity > listing.Stock {
			return domain.Validationf("only %d units of %q available", listing.Stock, listing.Title)
		}
		item.Quantity = quantity
		return tx.Model(&item).Update("quantity", quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Remove deletes a listing from the cart.
func (s *Service) Remove(ctx context.Context, userID, listingID uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND listing_id = ?", userID, listingID).Delete(&domain.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("cart item")
	}
	return nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID uint) error {
	return Clear(s.db.WithContext(ctx), userID)
}

// Clear empties userID's cart using db, which may be a transaction.
func Clear(db *gorm.DB, userID uint) error {
	return db.Where("user_id = ?", userID).Delete(&domain.CartItem{}).Error
}

// Items returns the cart items with their listings.
func (s *Service) Items(ctx context.Context, userID uint) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := s.db.WithContext(ctx).Preload("Listing").
		Where("user_id = ?", userID).Order("id").Find(&items).Error
	return items, err
}

// Summary prices the cart per vendor. An empty cart yields an empty summary.
type Summary struct {
	Groups    []GroupSummary `json:"groups"`
	ItemCount int            `json:"item_count"`
	Totals    Totals         `json:"totals"`
}

// GroupSummary is the priced cart share of one vendor.
type GroupSummary struct {
	VendorGroup
	Totals Totals `json:"totals"`
}

// Summary prices the current cart with live prices and stock.
func (s *Service) Summary(ctx context.Context, userID uint) (*Summary, error) {
	lines, err := Lines(s.db.WithContext(ctx), userID, false)
	if err != nil {
		return nil, err
	}
	return Summarize(lines, s.rules)
}

// Summarize prices lines per vendor group.
func Summarize(lines []Line, rules Rules) (*Summary, error) {
	sum := &Summary{Groups: []GroupSummary{}}
	for _, g := range GroupByVendor(lines) {
		totals, err := ComputeTotals(g.Lines, rules)
		if err != nil {
			return nil, err
		}
		sum.Groups = append(sum.Groups, GroupSummary{VendorGroup: g, Totals: totals})
		if sum.Totals, err = sum.Totals.Add(totals); err != nil {
			return nil, err
		}
		for _, l := range g.Lines {
			sum.ItemCount += l.Quantity
		}
	}
	return sum, nil
}

// Lines loads the cart as priced lines. With lock set, the listing rows are
// locked for update so stock can be decremented safely in the same
// transaction. Inactive listings report no available stock.
func Lines(db *gorm.DB, userID uint, lock bool) ([]Line, error) {
	var items []domain.CartItem
	if err := db.Where("user_id = ?", userID).Order("listing_id").Find(&items).Error; err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		q := db
		if lock {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var listing domain.Listing
		if err := q.First(&listing, item.ListingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.NotFound("listing")
			}
			return nil, err
		}
		available := listing.Stock
		if !listing.IsActive {
			available = 0
		}
		lines = append(lines, Line{
			ListingID: listing.ID,
			VendorID:  listing.VendorProfileID,
			Title:     listing.Title,
			UnitPrice: listing.Price,
			Quantity:  item.Quantity,
			Available: available,
		})
	}
	return lines, nil
}

func activeListing(tx *gorm.DB, listingID uint) (*domain.Listing, error) {
	var listing domain.Listing
	if err := tx.Where("id = ? AND is_active = ?", listingID, true).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("listing")
		}
		return nil, err
	}
	return &listing, nil
}
