package valueobjects

import (
	"net"
	"net/url"
	"strings"

	apperrors "housebalance/internal/shared_kernel/errors"
)

// NormalizeServiceURL canonicalises the base URL of an outbound service such
// as a treasury signer. Paths are kept, fragments and trailing slashes are not.
func NormalizeServiceURL(raw, field string) (string, *apperrors.AppError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperrors.NewValidation(
			"invalid_request",
			field+" is required",
			map[string]any{"field": field},
		)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() || strings.TrimSpace(parsed.Host) == "" {
		return "", apperrors.NewValidation(
			"invalid_request",
			field+" must be a valid absolute URL",
			map[string]any{"field": field},
		)
	}

	if parsed.User != nil {
		return "", apperrors.NewValidation(
			"invalid_request",
			field+" must not contain user info",
			map[string]any{"field": field},
		)
	}

	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	if scheme != "http" && scheme != "https" {
		return "", apperrors.NewValidation(
			"invalid_request",
			field+" must use http or https",
			map[string]any{"field": field},
		)
	}

	host := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(parsed.Hostname())), ".")
	if host == "" {
		return "", apperrors.NewValidation(
			"invalid_request",
			field+" host is required",
			map[string]any{"field": field},
		)
	}
	if port := strings.TrimSpace(parsed.Port()); port != "" {
		host = net.JoinHostPort(host, port)
	}

	parsed.Scheme = scheme
	parsed.Host = host
	parsed.Fragment = ""
	parsed.RawQuery = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""

	return parsed.String(), nil
}
