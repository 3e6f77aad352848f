package order

import (
	"context"
	"errors"
	"time"

	"bebamart/internal/domain"
	"bebamart/internal/utils"

	"gorm.io/gorm"
)

// List returns orders visible to scope, newest first. An empty status
// matches every status.
func (s *Service) List(ctx context.Context, scope Scope, status domain.OrderStatus, page utils.Page) ([]domain.Order, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.Validationf("unknown order status %q", status)
	}
	q := scope.apply(s.db.WithContext(ctx).Model(&domain.Order{}))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []domain.Order
	err := q.Preload("Items").Preload("Escrow").
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Get returns one order visible to scope with its items and escrow.
func (s *Service) Get(ctx context.Context, scope Scope, orderID uint) (*domain.Order, error) {
	return load(s.db.WithContext(ctx), orderID, scope)
}

func load(db *gorm.DB, orderID uint, scope Scope) (*domain.Order, error) {
	var o domain.Order
	err := scope.apply(db.Preload("Items").Preload("Escrow").Where("id = ?", orderID)).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("order")
		}
		return nil, err
	}
	return &o, nil
}

// VendorStats summarises a vendor's orders for the dashboard.
type VendorStats struct {
	TotalOrders     int64 `json:"total_orders"`
	OpenOrders      int64 `json:"open_orders"`
	DeliveredOrders int64 `json:"delivered_orders"`
	DisputedOrders  int64 `json:"disputed_orders"`
	TotalSales      int64 `json:"total_sales"`
	MonthlyRevenue  int64 `json:"monthly_revenue"`
	ActiveListings  int64 `json:"active_listings"`
	TotalViews      int64 `json:"total_views"`
}

// VendorStats counts a vendor's orders by state and sums delivered sales,
// overall and for the current calendar month.
func (s *Service) VendorStats(ctx context.Context, vendorProfileID uint) (*VendorStats, error) {
	db := s.db.WithContext(ctx)
	orders := func() *gorm.DB {
		return db.Model(&domain.Order{}).Where("vendor_profile_id = ?", vendorProfileID)
	}

	var st VendorStats
	if err := orders().Count(&st.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := orders().Where("status IN ?", []domain.OrderStatus{
		domain.OrderPending, domain.OrderPaid, domain.OrderProcessing, domain.OrderShipped,
	}).Count(&st.OpenOrders).Error; err != nil {
		return nil, err
	}
	if err := orders().Where("status = ?", domain.OrderDelivered).Count(&st.DeliveredOrders).Error; err != nil {
		return nil, err
	}
	if err := orders().Where("status = ?", domain.OrderDisputed).Count(&st.DisputedOrders).Error; err != nil {
		return nil, err
	}
	if err := orders().Where("status = ?", domain.OrderDelivered).
		Select("COALESCE(SUM(total), 0)").Scan(&st.TotalSales).Error; err != nil {
		return nil, err
	}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if err := orders().Where("status = ? AND delivered_at >= ?", domain.OrderDelivered, monthStart).
		Select("COALESCE(SUM(total), 0)").Scan(&st.MonthlyRevenue).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Listing{}).
		Where("vendor_profile_id = ? AND is_active = ?", vendorProfileID, true).
		Count(&st.ActiveListings).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Listing{}).Where("vendor_profile_id = ?", vendorProfileID).
		Select("COALESCE(SUM(view_count), 0)").Scan(&st.TotalViews).Error; err != nil {
		return nil, err
	}
	return &st, nil
}
