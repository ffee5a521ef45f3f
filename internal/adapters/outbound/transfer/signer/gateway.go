package signer

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	valueobjects "housebalance/internal/domain/value_objects"
	apperrors "housebalance/internal/shared_kernel/errors"

	"go.uber.org/zap"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBodyBytes  = 1024
	maxBodyBytes       = 64 * 1024
)

type Config struct {
	Class      valueobjects.AddressClass
	BaseURL    string
	AuthToken  string
	HMACSecret string
	Timeout    time.Duration
}

// Gateway submits transfers to an external signing service that holds the
// treasury keys for one chain family.
type Gateway struct {
	class      valueobjects.AddressClass
	baseURL    string
	authToken  string
	hmacSecret string
	client     *nethttp.Client
	logger     *zap.Logger
}

var _ portsout.TransferGateway = (*Gateway)(nil)

func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{
		class:      cfg.Class,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		authToken:  strings.TrimSpace(cfg.AuthToken),
		hmacSecret: strings.TrimSpace(cfg.HMACSecret),
		client:     &nethttp.Client{Timeout: timeout},
		logger:     logger.With(zap.String("transfer_mode", "signer"), zap.String("address_class", cfg.Class.String())),
	}
}

func (g *Gateway) Mode() string {
	return "signer"
}

type transferRequest struct {
	AddressClass     string `json:"address_class"`
	Destination      string `json:"destination"`
	Amount           string `json:"amount"`
	IdempotencyToken string `json:"idempotency_token"`
}

type transferResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Code          string `json:"code"`
	Message       string `json:"message"`
}

func (g *Gateway) Transfer(ctx context.Context, input dto.TransferInput) (dto.TransferOutput, *apperrors.AppError) {
	if g == nil || g.client == nil || g.baseURL == "" {
		return dto.TransferOutput{}, apperrors.NewInternal(
			"transfer_gateway_not_configured",
			"signer transfer gateway is not configured",
			nil,
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

	body, err := json.Marshal(transferRequest{
		AddressClass:     g.class.String(),
		Destination:      input.Destination,
		Amount:           input.Amount.String(),
		IdempotencyToken: token,
	})
	if err != nil {
		return dto.TransferOutput{}, apperrors.NewInternal(
			"transfer_request_build_failed",
			"failed to encode transfer request",
			map[string]any{"error": err.Error()},
		)
	}

	request, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, g.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return dto.TransferOutput{}, apperrors.NewInternal(
			"transfer_request_build_failed",
			"failed to build transfer request",
			map[string]any{"error": err.Error()},
		)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Idempotency-Key", token)
	g.authorize(request, body)

	response, err := g.client.Do(request)
	if err != nil {
		return dto.TransferOutput{}, classifyTransportError(err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		appErr := classifyStatus(response)
		g.logger.Warn("signer rejected transfer",
			zap.Int("status_code", response.StatusCode),
			zap.String("code", appErr.Code),
			zap.String("transfer_token", token),
		)
		return dto.TransferOutput{}, appErr
	}

	var decoded transferResponse
	if err := json.NewDecoder(io.LimitReader(response.Body, maxBodyBytes)).Decode(&decoded); err != nil {
		// The signer accepted the request; only the receipt is unreadable.
		return dto.TransferOutput{}, apperrors.NewTransferFailed(
			portsout.TransferErrorOutcomeUnknown,
			"signer response could not be decoded",
			map[string]any{"error": err.Error()},
		)
	}

	return dto.TransferOutput{TransactionID: strings.TrimSpace(decoded.TransactionID)}, nil
}

func (g *Gateway) LookupTransfer(ctx context.Context, input dto.TransferLookupInput) (dto.TransferLookupOutput, *apperrors.AppError) {
	if g == nil || g.client == nil || g.baseURL == "" {
		return dto.TransferLookupOutput{}, apperrors.NewInternal(
			"transfer_gateway_not_configured",
			"signer transfer gateway is not configured",
			nil,
		)
	}

	token := strings.TrimSpace(input.IdempotencyToken)
	request, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, g.baseURL+"/v1/transfers/"+url.PathEscape(token), nil)
	if err != nil {
		return dto.TransferLookupOutput{}, apperrors.NewInternal(
			"transfer_request_build_failed",
			"failed to build transfer lookup request",
			map[string]any{"error": err.Error()},
		)
	}
	g.authorize(request, nil)

	response, err := g.client.Do(request)
	if err != nil {
		return dto.TransferLookupOutput{}, apperrors.NewTransferFailed(
			portsout.TransferErrorNetwork,
			"signer lookup request failed",
			map[string]any{"error": err.Error()},
		)
	}
	defer response.Body.Close()

	if response.StatusCode == nethttp.StatusNotFound {
		return dto.TransferLookupOutput{State: dto.TransferLookupNotFound}, nil
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return dto.TransferLookupOutput{}, apperrors.NewTransferFailed(
			portsout.TransferErrorNetwork,
			"signer lookup returned non-2xx status",
			map[string]any{"status_code": response.StatusCode, "body": bodyPreview(response.Body)},
		)
	}

	var decoded transferResponse
	if err := json.NewDecoder(io.LimitReader(response.Body, maxBodyBytes)).Decode(&decoded); err != nil {
		return dto.TransferLookupOutput{}, apperrors.NewTransferFailed(
			portsout.TransferErrorNetwork,
			"signer lookup response could not be decoded",
			map[string]any{"error": err.Error()},
		)
	}

	switch strings.ToLower(strings.TrimSpace(decoded.Status)) {
	case "confirmed", "completed", "broadcast":
		return dto.TransferLookupOutput{
			State:         dto.TransferLookupConfirmed,
			TransactionID: strings.TrimSpace(decoded.TransactionID),
		}, nil
	case "failed", "rejected":
		return dto.TransferLookupOutput{State: dto.TransferLookupNotFound}, nil
	default:
		return dto.TransferLookupOutput{State: dto.TransferLookupPending}, nil
	}
}

func (g *Gateway) authorize(request *nethttp.Request, body []byte) {
	if g.authToken != "" {
		request.Header.Set("Authorization", "Bearer "+g.authToken)
	}
	if g.hmacSecret != "" {
		timestamp := strconv.FormatInt(time.Now().UTC().Unix(), 10)
		request.Header.Set("X-Signer-Timestamp", timestamp)
		request.Header.Set("X-Signer-Signature", BuildSignatureHeader(g.hmacSecret, timestamp, request.Method, request.URL.Path, body))
	}
}

// BuildSignatureHeader signs timestamp, method, path and body with the shared secret.
func BuildSignatureHeader(secret, timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(method))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(path))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

// classifyTransportError treats only a failed dial as definite: once a
// connection exists the signer may have acted on the request.
func classifyTransportError(err error) *apperrors.AppError {
	var opErr *net.OpError
	if stderrors.As(err, &opErr) && opErr.Op == "dial" {
		return apperrors.NewTransferFailed(
			portsout.TransferErrorNetwork,
			"signer is unreachable",
			map[string]any{"error": err.Error()},
		)
	}
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return apperrors.NewTransferFailed(
			portsout.TransferErrorNetwork,
			"signer host could not be resolved",
			map[string]any{"error": err.Error()},
		)
	}

	return apperrors.NewTransferFailed(
		portsout.TransferErrorOutcomeUnknown,
		"signer request failed after it may have been delivered",
		map[string]any{"error": err.Error()},
	)
}

func classifyStatus(response *nethttp.Response) *apperrors.AppError {
	raw, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
	var decoded transferResponse
	_ = json.Unmarshal(raw, &decoded)
	details := map[string]any{
		"status_code": response.StatusCode,
		"body":        strings.TrimSpace(string(raw)),
	}
	code := strings.ToLower(strings.TrimSpace(decoded.Code))

	switch {
	case response.StatusCode == nethttp.StatusServiceUnavailable:
		return apperrors.NewTransferFailed(portsout.TransferErrorNetwork, "signer is unavailable", details)
	case response.StatusCode >= 500:
		return apperrors.NewTransferFailed(portsout.TransferErrorOutcomeUnknown, "signer failed while processing the transfer", details)
	case response.StatusCode == nethttp.StatusConflict:
		return apperrors.NewTransferFailed(portsout.TransferErrorOutcomeUnknown, "signer reports a conflicting transfer for this token", details)
	case response.StatusCode == nethttp.StatusPaymentRequired || strings.Contains(code, "insufficient"):
		return apperrors.NewTransferFailed(portsout.TransferErrorInsufficientTreasuryFunds, "treasury cannot cover the transfer", details)
	case response.StatusCode == nethttp.StatusBadRequest || response.StatusCode == nethttp.StatusUnprocessableEntity:
		return apperrors.NewTransferFailed(portsout.TransferErrorInvalidAddress, "signer rejected the destination", details)
	default:
		return apperrors.NewTransferFailed(portsout.TransferErrorNetwork, "signer rejected the request", details)
	}
}

func bodyPreview(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
