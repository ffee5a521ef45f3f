package devtest

import (
	"context"
	"encoding/hex"
	"strings"
	"sync"

	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

type Config struct {
	Class valueobjects.AddressClass
	// TreasuryFunds caps the total paid out. Zero means unlimited.
	TreasuryFunds decimal.Decimal
}

// Gateway simulates a treasury in memory. It never touches a chain and
// forgets every transfer on restart.
type Gateway struct {
	class    valueobjects.AddressClass
	limited  bool
	treasury decimal.Decimal
	logger   *zap.Logger

	mu        sync.Mutex
	transfers map[string]string
}

var _ portsout.TransferGateway = (*Gateway)(nil)

func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		class:     cfg.Class,
		limited:   cfg.TreasuryFunds.IsPositive(),
		treasury:  cfg.TreasuryFunds,
		logger:    logger.With(zap.String("transfer_mode", "devtest"), zap.String("address_class", cfg.Class.String())),
		transfers: map[string]string{},
	}
}

func (g *Gateway) Mode() string {
	return "devtest"
}

func (g *Gateway) Transfer(ctx context.Context, input dto.TransferInput) (dto.TransferOutput, *apperrors.AppError) {
	if err := ctx.Err(); err != nil {
		return dto.TransferOutput{}, apperrors.NewTransferFailed(
			portsout.TransferErrorNetwork,
			"transfer aborted before submission",
			map[string]any{"error": err.Error()},
		)
	}
	token := strings.TrimSpace(input.IdempotencyToken)
	if token == "" {
		return dto.TransferOutput{}, apperrors.NewInternal(
			"transfer_token_missing",
			"transfer idempotency token is required",
			nil,
		)
	}
	destination := valueobjects.Classify(input.Destination)
	if destination.Class != g.class {
		return dto.TransferOutput{}, apperrors.NewTransferFailed(
			portsout.TransferErrorInvalidAddress,
			"destination is not an address of this chain",
			map[string]any{"address_class": g.class.String()},
		)
	}
	if !input.Amount.IsPositive() {
		return dto.TransferOutput{}, apperrors.NewInternal(
			"transfer_amount_invalid",
			"transfer amount must be positive",
			map[string]any{"amount": input.Amount.String()},
		)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if txID, ok := g.transfers[token]; ok {
		return dto.TransferOutput{TransactionID: txID}, nil
	}
	if g.limited && g.treasury.LessThan(input.Amount) {
		return dto.TransferOutput{}, apperrors.NewTransferFailed(
			portsout.TransferErrorInsufficientTreasuryFunds,
			"treasury cannot cover the transfer",
			map[string]any{"amount": input.Amount.String()},
		)
	}
	if g.limited {
		g.treasury = g.treasury.Sub(input.Amount)
	}

	txID := transactionID(g.class, token)
	g.transfers[token] = txID
	g.logger.Info("devtest transfer sent",
		zap.String("destination", destination.Canonical),
		zap.String("amount", input.Amount.String()),
		zap.String("transfer_tx_id", txID),
	)
	return dto.TransferOutput{TransactionID: txID}, nil
}

func (g *Gateway) LookupTransfer(_ context.Context, input dto.TransferLookupInput) (dto.TransferLookupOutput, *apperrors.AppError) {
	g.mu.Lock()
	defer g.mu.Unlock()

	txID, ok := g.transfers[strings.TrimSpace(input.IdempotencyToken)]
	if !ok {
		return dto.TransferLookupOutput{State: dto.TransferLookupNotFound}, nil
	}
	return dto.TransferLookupOutput{State: dto.TransferLookupConfirmed, TransactionID: txID}, nil
}

// transactionID derives a stable fake hash so repeated transfers of one token agree.
func transactionID(class valueobjects.AddressClass, token string) string {
	digest := sha3.NewLegacyKeccak256()
	_, _ = digest.Write([]byte(class.String()))
	_, _ = digest.Write([]byte{0})
	_, _ = digest.Write([]byte(token))
	sum := hex.EncodeToString(digest.Sum(nil))

	switch class {
	case valueobjects.AddressClassEVM, valueobjects.AddressClassSui:
		return "0x" + sum
	default:
		return sum
	}
}
