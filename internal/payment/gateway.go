package payment

import (
	"context"
	"strings"

	"bebamart/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Gateway moves money between wallets and the outside world.
type Gateway interface {
	// VerifyDeposit confirms that reference credited amount to the platform.
	VerifyDeposit(ctx context.Context, reference string, amount int64) error
	// Payout sends amount from a wallet to destination and returns the
	// gateway's payout id.
	Payout(ctx context.Context, req PayoutRequest) (string, error)
}

// PayoutRequest describes a withdrawal leaving the platform.
type PayoutRequest struct {
	WalletID    uint
	Amount      int64
	Destination string
	Reference   string
}

// ManualGateway trusts operator-entered references. Deposits are accepted as
// long as a reference is given and payouts are queued for manual settlement.
type ManualGateway struct{}

// NewManualGateway returns the manual gateway.
func NewManualGateway() *ManualGateway {
	return &ManualGateway{}
}

func (ManualGateway) VerifyDeposit(_ context.Context, reference string, amount int64) error {
	if strings.TrimSpace(reference) == "" {
		return domain.Validationf("payment reference is required")
	}
	if amount <= 0 {
		return domain.Validationf("amount must be positive")
	}
	return nil
}

func (ManualGateway) Payout(_ context.Context, req PayoutRequest) (string, error) {
	if strings.TrimSpace(req.Destination) == "" {
		return "", domain.Validationf("payout destination is required")
	}
	if req.Amount <= 0 {
		return "", domain.Validationf("amount must be positive")
	}
	id := req.Reference
	if id == "" {
		id = uuid.NewString()
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id":   req.WalletID,
		"amount":      req.Amount,
		"destination": req.Destination,
		"payout_id":   id,
	}).Info("Payout queued for manual settlement")
	return id, nil
}
