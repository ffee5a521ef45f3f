//go:build !integration

package di

import (
	"context"
	"testing"

	"housebalance/internal/adapters/outbound/transfer/signer"
	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	valueobjects "housebalance/internal/domain/value_objects"
	"housebalance/internal/infrastructure/config"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestBuildTransferRegistryDevtest(t *testing.T) {
	registry, err := BuildTransferRegistry(config.Config{
		TransferMode:    "devtest",
		TransferClasses: []valueobjects.AddressClass{valueobjects.AddressClassEVM, valueobjects.AddressClassSolana},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected registry, got error: %v", err)
	}

	if _, ok := registry.Resolve(valueobjects.AddressClassEVM); !ok {
		t.Fatalf("expected evm gateway")
	}
	if _, ok := registry.Resolve(valueobjects.AddressClassSolana); !ok {
		t.Fatalf("expected solana gateway")
	}
	if _, ok := registry.Resolve(valueobjects.AddressClassKaspa); ok {
		t.Fatalf("expected no kaspa gateway when kaspa is not configured")
	}
}

func TestBuildTransferRegistrySigner(t *testing.T) {
	registry, err := BuildTransferRegistry(config.Config{
		TransferMode:         "SIGNER",
		TransferClasses:      []valueobjects.AddressClass{valueobjects.AddressClassStellar},
		TransferSignerURLs:   map[valueobjects.AddressClass]string{valueobjects.AddressClassStellar: "http://signer-stellar:8080"},
		TransferSignerSecret: "secret",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected registry, got error: %v", err)
	}

	gateway, ok := registry.Resolve(valueobjects.AddressClassStellar)
	if !ok {
		t.Fatalf("expected stellar gateway")
	}
	if _, isSigner := gateway.(*signer.Gateway); !isSigner {
		t.Fatalf("expected signer gateway, got %T", gateway)
	}
}

func TestBuildTransferRegistryRejectsUnknownMode(t *testing.T) {
	_, err := BuildTransferRegistry(config.Config{
		TransferMode:    "mainnet-yolo",
		TransferClasses: []valueobjects.AddressClass{valueobjects.AddressClassEVM},
	}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected unsupported mode error")
	}
}

func TestBuildTransferRegistryRequiresClasses(t *testing.T) {
	_, err := BuildTransferRegistry(config.Config{TransferMode: "devtest"}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected error when no classes are configured")
	}
}

type stubGateway struct{}

func (stubGateway) Transfer(_ context.Context, _ dto.TransferInput) (dto.TransferOutput, *apperrors.AppError) {
	return dto.TransferOutput{TransactionID: "stub"}, nil
}

func (stubGateway) LookupTransfer(_ context.Context, _ dto.TransferLookupInput) (dto.TransferLookupOutput, *apperrors.AppError) {
	return dto.TransferLookupOutput{State: dto.TransferLookupNotFound}, nil
}

func TestRegisterTransferGatewayBuilder(t *testing.T) {
	RegisterTransferGatewayBuilder(" Stub ", func(_ config.Config, _ valueobjects.AddressClass, _ *zap.Logger) portsout.TransferGateway {
		return stubGateway{}
	})
	t.Cleanup(func() {
		transferGatewayBuildersMu.Lock()
		delete(transferGatewayBuilders, "stub")
		transferGatewayBuildersMu.Unlock()
	})

	registry, err := BuildTransferRegistry(config.Config{
		TransferMode:    "stub",
		TransferClasses: []valueobjects.AddressClass{valueobjects.AddressClassSui},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("expected registry, got error: %v", err)
	}

	gateway, ok := registry.Resolve(valueobjects.AddressClassSui)
	if !ok {
		t.Fatalf("expected sui gateway")
	}
	output, appErr := gateway.Transfer(context.Background(), dto.TransferInput{
		AddressClass: valueobjects.AddressClassSui,
		Amount:       decimal.RequireFromString("1"),
	})
	if appErr != nil || output.TransactionID != "stub" {
		t.Fatalf("expected stub transfer, got %+v %+v", output, appErr)
	}
}

func TestRegisterTransferGatewayBuilderIgnoresBlankMode(t *testing.T) {
	RegisterTransferGatewayBuilder("  ", func(_ config.Config, _ valueobjects.AddressClass, _ *zap.Logger) portsout.TransferGateway {
		return stubGateway{}
	})

	transferGatewayBuildersMu.RLock()
	_, exists := transferGatewayBuilders[""]
	transferGatewayBuildersMu.RUnlock()
	if exists {
		t.Fatalf("expected blank mode to be ignored")
	}
}
