package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"bebamart/internal/db"
	"bebamart/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var phoneSeq atomic.Int64

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A single connection keeps the shared in-memory database alive and
	// serializes transactions the way row locks do on MySQL.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// CreateUser inserts a user with the given role and an empty wallet.
func CreateUser(t testing.TB, conn *gorm.DB, name, role string) (domain.User, domain.Wallet) {
	t.Helper()

	user := domain.User{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Phone:    fmt.Sprintf("+2567%08d", phoneSeq.Add(1)),
		Password: "x",
		Role:     role,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	wallet := domain.Wallet{UserID: user.ID, Currency: "UGX"}
	if err := conn.Create(&wallet).Error; err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return user, wallet
}

// CreateBuyer inserts a buyer whose wallet is funded with balance through a
// deposit ledger entry.
func CreateBuyer(t testing.TB, conn *gorm.DB, name string, balance int64) (domain.User, domain.Wallet) {
	t.Helper()

	user, wallet := CreateUser(t, conn, name, domain.RoleBuyer)
	if balance > 0 {
		Fund(t, conn, wallet.ID, balance)
		wallet = LoadWallet(t, conn, wallet.ID)
	}
	return user, wallet
}

// CreateVendor inserts an approved local vendor with a wallet.
func CreateVendor(t testing.TB, conn *gorm.DB, name string) (domain.User, domain.VendorProfile, domain.Wallet) {
	t.Helper()

	user, wallet := CreateUser(t, conn, name, domain.RoleVendorLocal)
	profile := domain.VendorProfile{
		UserID:        user.ID,
		VendorType:    domain.VendorTypeLocalRetail,
		BusinessName:  name + "'s Store",
		Country:       "Uganda",
		City:          "Kampala",
		VettingStatus: domain.VettingApproved,
	}
	if err := conn.Create(&profile).Error; err != nil {
		t.Fatalf("create vendor profile: %v", err)
	}
	return user, profile, wallet
}

// CreateListing inserts an active listing.
func CreateListing(t testing.TB, conn *gorm.DB, vendorProfileID uint, title string, price int64, stock int) domain.Listing {
	t.Helper()

	listing := domain.Listing{
		VendorProfileID: vendorProfileID,
		Title:           title,
		Price:           price,
		Stock:           stock,
		Condition:       "new",
		IsActive:        true,
	}
	if err := conn.Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

// AddToCart puts quantity units of a listing in the user's cart.
func AddToCart(t testing.TB, conn *gorm.DB, userID, listingID uint, quantity int) {
	t.Helper()

	item := domain.CartItem{UserID: userID, ListingID: listingID, Quantity: quantity}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}

// Fund credits a wallet and records the matching deposit entry.
func Fund(t testing.TB, conn *gorm.DB, walletID uint, amount int64) {
	t.Helper()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Wallet{}).Where("id = ?", walletID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}
		var w domain.Wallet
		if err := tx.First(&w, walletID).Error; err != nil {
			return err
		}
		return tx.Create(&domain.LedgerEntry{
			WalletID:     walletID,
			Amount:       amount,
			Reason:       domain.ReasonDeposit,
			BalanceAfter: w.Balance,
		}).Error
	})
	if err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
}

// LoadWallet re-reads a wallet.
func LoadWallet(t testing.TB, conn *gorm.DB, walletID uint) domain.Wallet {
	t.Helper()

	var w domain.Wallet
	if err := conn.First(&w, walletID).Error; err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	return w
}

// LedgerSum returns the sum of a wallet's ledger entries.
func LedgerSum(t testing.TB, conn *gorm.DB, walletID uint) int64 {
	t.Helper()

	var sum int64
	if err := conn.Model(&domain.LedgerEntry{}).Where("wallet_id = ?", walletID).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; err != nil {
		t.Fatalf("sum ledger: %v", err)
	}
	return sum
}
