//go:build !integration

package main

import (
	"testing"

	"housebalance/internal/infrastructure/config"
)

func TestValidateAuditDispatcherConfig(t *testing.T) {
	testCases := []struct {
		name         string
		cfg          config.Config
		expectedCode string
	}{
		{
			name: "audit disabled",
			cfg: config.Config{
				AuditEnabled: false,
			},
			expectedCode: "CONFIG_AUDIT_DISABLED",
		},
		{
			name: "dispatch disabled",
			cfg: config.Config{
				AuditEnabled:         true,
				AuditDispatchEnabled: false,
			},
			expectedCode: "CONFIG_AUDIT_DISPATCH_DISABLED",
		},
		{
			name: "missing brokers",
			cfg: config.Config{
				AuditEnabled:         true,
				AuditDispatchEnabled: true,
			},
			expectedCode: "CONFIG_AUDIT_KAFKA_BROKERS_REQUIRED",
		},
		{
			name: "valid",
			cfg: config.Config{
				AuditEnabled:         true,
				AuditDispatchEnabled: true,
				AuditKafkaBrokers:    []string{"kafka:9092"},
			},
			expectedCode: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := validateAuditDispatcherConfig(tc.cfg)
			if tc.expectedCode == "" {
				if err != nil {
					t.Fatalf("expected nil error, got %+v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error code %s", tc.expectedCode)
			}
			if err.Code != tc.expectedCode {
				t.Fatalf("expected error code %s, got %s", tc.expectedCode, err.Code)
			}
		})
	}
}
