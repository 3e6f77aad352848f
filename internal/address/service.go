package address

import (
	"context"
	"errors"
	"strings"

	"bebamart/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Input carries the editable fields of an address.
type Input struct {
	Label         string
	RecipientName string
	Phone         string
	AddressLine   string
	City          string
	Region        string
	Country       string
	IsDefault     bool
}

func (in Input) apply(a *domain.ShippingAddress) error {
	a.Label = strings.TrimSpace(in.Label)
	a.RecipientName = strings.TrimSpace(in.RecipientName)
	a.Phone = strings.TrimSpace(in.Phone)
	a.AddressLine = strings.TrimSpace(in.AddressLine)
	a.City = strings.TrimSpace(in.City)
	a.Region = strings.TrimSpace(in.Region)
	a.Country = strings.TrimSpace(in.Country)
	if a.Country == "" {
		a.Country = "Uganda"
	}
	switch {
	case a.RecipientName == "":
		return domain.Validationf("recipient name is required")
	case a.Phone == "":
		return domain.Validationf("phone is required")
	case a.AddressLine == "":
		return domain.Validationf("address line is required")
	case a.City == "":
		return domain.Validationf("city is required")
	}
	return nil
}

// Service manages a user's address book.
type Service struct {
	db *gorm.DB
}

// NewService creates an address book service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns the user's addresses, default first.
func (s *Service) List(ctx context.Context, userID uint) ([]domain.ShippingAddress, error) {
	var out []domain.ShippingAddress
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("is_default DESC").Order("id").Find(&out).Error
	return out, err
}

// Create adds an address. The first address a user saves becomes the
// default, as does one created with IsDefault.
func (s *Service) Create(ctx context.Context, userID uint, in Input) (*domain.ShippingAddress, error) {
	a := domain.ShippingAddress{UserID: userID}
	if err := in.apply(&a); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&domain.ShippingAddress{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if err := tx.Create(&a).Error; err != nil {
			return err
		}
		if in.IsDefault || count == 0 {
			return markDefault(tx, &a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Update replaces the fields of one of the user's addresses. Passing
// IsDefault makes it the default; an update never clears the default.
func (s *Service) Update(ctx context.Context, userID, id uint, in Input) (*domain.ShippingAddress, error) {
	var a domain.ShippingAddress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		found, err := Owned(tx, userID, id)
		if err != nil {
			return err
		}
		a = *found
		if err := in.apply(&a); err != nil {
			return err
		}
		if err := tx.Model(&a).Select("label", "recipient_name", "phone", "address_line", "city", "region", "country").
			Updates(&a).Error; err != nil {
			return err
		}
		if in.IsDefault && !a.IsDefault {
			return markDefault(tx, &a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes an address. When it was the default, the most recently
// added remaining address takes over.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		a, err := Owned(tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(a).Error; err != nil {
			return err
		}
		if !a.IsDefault {
			return nil
		}
		var next domain.ShippingAddress
		err = tx.Where("user_id = ?", userID).Order("id DESC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return markDefault(tx, &next)
	})
}

// SetDefault makes one of the user's addresses the default.
func (s *Service) SetDefault(ctx context.Context, userID, id uint) (*domain.ShippingAddress, error) {
	var a *domain.ShippingAddress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var err error
		if a, err = Owned(tx, userID, id); err != nil {
			return err
		}
		return markDefault(tx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Owned loads one of the user's addresses using db, which may be a
// transaction. Another user's address is reported as not found.
func Owned(db *gorm.DB, userID, id uint) (*domain.ShippingAddress, error) {
	var a domain.ShippingAddress
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("address")
		}
		return nil, err
	}
	return &a, nil
}

// Default returns the user's default address, or nil when none is set.
func Default(db *gorm.DB, userID uint) (*domain.ShippingAddress, error) {
	var a domain.ShippingAddress
	err := db.Where("user_id = ? AND is_default = ?", userID, true).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// markDefault clears the user's other defaults and flags a.
func markDefault(tx *gorm.DB, a *domain.ShippingAddress) error {
	if err := tx.Model(&domain.ShippingAddress{}).
		Where("user_id = ? AND id <> ? AND is_default = ?", a.UserID, a.ID, true).
		Update("is_default", false).Error; err != nil {
		return err
	}
	a.IsDefault = true
	return tx.Model(a).Update("is_default", true).Error
}

// lockUser serializes the address book writes of one user, keeping a single
// default.
func lockUser(tx *gorm.DB, userID uint) error {
	var u domain.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("user")
		}
		return err
	}
	return nil
}
