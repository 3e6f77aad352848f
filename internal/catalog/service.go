package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bebamart/internal/domain"
	"bebamart/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const browsePrefix = "marketplace:"

// Service manages vendor listings and the public marketplace.
type Service struct {
	db    *gorm.DB
	cache *utils.Cache
}

// NewService creates a catalog service. cache may be nil.
func NewService(db *gorm.DB, cache *utils.Cache) *Service {
	return &Service{db: db, cache: cache}
}

// ListingInput carries the editable listing fields. Nil fields are left
// unchanged on update.
type ListingInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Stock       *int    `json:"stock"`
	Condition   *string `json:"condition"`
	IsActive    *bool   `json:"is_active"`
}

func (in ListingInput) apply(l *domain.Listing) error {
	if in.Title != nil {
		l.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		l.Description = *in.Description
	}
	if in.Price != nil {
		l.Price = *in.Price
	}
	if in.Stock != nil {
		l.Stock = *in.Stock
	}
	if in.Condition != nil {
		l.Condition = *in.Condition
	}
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
	switch {
	case l.Title == "":
		return domain.Validationf("title is required")
	case l.Price <= 0:
		return domain.Validationf("price must be positive")
	case l.Price > domain.MaxPrice:
		return domain.Validationf("price cannot exceed %d", domain.MaxPrice)
	case l.Stock < 0:
		return domain.Validationf("stock cannot be negative")
	case !domain.ValidCondition(l.Condition):
		return domain.Validationf("condition must be new, used or refurbished")
	}
	return nil
}

// Create adds a listing for the vendor. New listings are active unless
// is_active is false.
func (s *Service) Create(ctx context.Context, vendorProfileID uint, in ListingInput) (*domain.Listing, error) {
	l := domain.Listing{
		VendorProfileID: vendorProfileID,
		Condition:       domain.ConditionNew,
		IsActive:        true,
	}
	if err := in.apply(&l); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&l).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"listing_id": l.ID, "vendor_id": vendorProfileID}).Info("Listing created")
	s.Invalidate(ctx)
	return &l, nil
}

// Update edits a listing owned by the vendor.
func (s *Service) Update(ctx context.Context, vendorProfileID, listingID uint, in ListingInput) (*domain.Listing, error) {
	var l *domain.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if l, err = owned(tx, vendorProfileID, listingID); err != nil {
			return err
		}
		if err := in.apply(l); err != nil {
			return err
		}
		return tx.Model(&domain.Listing{}).Where("id = ?", l.ID).Updates(map[string]any{
			"title":       l.Title,
			"description": l.Description,
			"price":       l.Price,
			"stock":       l.Stock,
			"condition":   l.Condition,
			"is_active":   l.IsActive,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return l, nil
}

// ToggleStatus flips a listing between active and inactive.
func (s *Service) ToggleStatus(ctx context.Context, vendorProfileID, listingID uint) (*domain.Listing, error) {
	var l *domain.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if l, err = owned(tx, vendorProfileID, listingID); err != nil {
			return err
		}
		l.IsActive = !l.IsActive
		return tx.Model(&domain.Listing{}).Where("id = ?", l.ID).Update("is_active", l.IsActive).Error
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return l, nil
}

// Delete removes a listing and drops it from every cart. Placed orders keep
// their item snapshots.
func (s *Service) Delete(ctx context.Context, vendorProfileID, listingID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := owned(tx, vendorProfileID, listingID)
		if err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", l.ID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Listing{}, l.ID).Error
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"listing_id": listingID, "vendor_id": vendorProfileID}).Info("Listing deleted")
	s.Invalidate(ctx)
	return nil
}

// GetForVendor returns one of the vendor's listings.
func (s *Service) GetForVendor(ctx context.Context, vendorProfileID, listingID uint) (*domain.Listing, error) {
	return owned(s.db.WithContext(ctx), vendorProfileID, listingID)
}

// ListForVendor pages through the vendor's listings, newest first.
func (s *Service) ListForVendor(ctx context.Context, vendorProfileID uint, page utils.Page) ([]domain.Listing, int64, error) {
	q := s.db.WithContext(ctx).Model(&domain.Listing{}).
		Where("vendor_profile_id = ?", vendorProfileID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var listings []domain.Listing
	err := q.Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// GetActive returns an active listing with its vendor and counts the view.
func (s *Service) GetActive(ctx context.Context, listingID uint) (*domain.Listing, error) {
	db := s.db.WithContext(ctx)
	var l domain.Listing
	if err := db.Preload("VendorProfile").
		Where("id = ? AND is_active = ?", listingID, true).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("listing")
		}
		return nil, err
	}
	if err := db.Model(&domain.Listing{}).Where("id = ?", l.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		return nil, err
	}
	l.ViewCount++
	return &l, nil
}

// BrowseFilter narrows the public marketplace.
type BrowseFilter struct {
	Search    string
	MinPrice  int64
	MaxPrice  int64
	Condition string
	SortBy    string // created_at, price or title
	SortDir   string // asc or desc
}

var sortColumns = map[string]string{
	"":           "listings.created_at",
	"created_at": "listings.created_at",
	"price":      "listings.price",
	"title":      "listings.title",
}

// Browse lists active listings of vendors in good standing.
func (s *Service) Browse(ctx context.Context, f BrowseFilter, page utils.Page) ([]domain.Listing, int64, error) {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		return nil, 0, domain.Validationf("cannot sort by %q", f.SortBy)
	}
	dir := strings.ToLower(f.SortDir)
	switch dir {
	case "":
		dir = "desc"
	case "asc", "desc":
	default:
		return nil, 0, domain.Validationf("sort_dir must be asc or desc")
	}
	if f.Condition != "" && !domain.ValidCondition(f.Condition) {
		return nil, 0, domain.Validationf("unknown condition %q", f.Condition)
	}
	if f.MinPrice < 0 || f.MaxPrice < 0 || (f.MaxPrice > 0 && f.MinPrice > f.MaxPrice) {
		return nil, 0, domain.Validationf("invalid price range")
	}

	key := fmt.Sprintf("%s%s|%d|%d|%s|%s|%s|%d|%d", browsePrefix,
		f.Search, f.MinPrice, f.MaxPrice, f.Condition, column, dir, page.Page, page.Size)
	var cached struct {
		Listings []domain.Listing `json:"listings"`
		Total    int64            `json:"total"`
	}
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return cached.Listings, cached.Total, nil
	}

	q := s.db.WithContext(ctx).Model(&domain.Listing{}).
		Joins("JOIN vendor_profiles ON vendor_profiles.id = listings.vendor_profile_id").
		Where("listings.is_active = ? AND vendor_profiles.vetting_status <> ?", true, domain.VettingRejected)
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + search + "%"
		q = q.Where("(listings.title LIKE ? OR listings.description LIKE ?)", like, like)
	}
	if f.MinPrice > 0 {
		q = q.Where("listings.price >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q = q.Where("listings.price <= ?", f.MaxPrice)
	}
	if f.Condition != "" {
		q = q.Where("listings.condition = ?", f.Condition)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var listings []domain.Listing
	err := q.Preload("VendorProfile").
		Order(column + " " + dir).Order("listings.id " + dir).
		Offset(page.Offset()).Limit(page.Size).
		Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	cached.Listings, cached.Total = listings, total
	_ = s.cache.Set(ctx, key, cached)
	return listings, total, nil
}

// Invalidate drops cached marketplace pages. Order placement and cancellation
// call it after moving stock.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, browsePrefix); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate marketplace cache")
	}
}

func owned(db *gorm.DB, vendorProfileID, listingID uint) (*domain.Listing, error) {
	var l domain.Listing
	if err := db.Where("id = ? AND vendor_profile_id = ?", listingID, vendorProfileID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("listing")
		}
		return nil, err
	}
	return &l, nil
}
