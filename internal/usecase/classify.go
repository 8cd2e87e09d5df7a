package usecase

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ProviderFailure is the structured view of a failed provider call.
type ProviderFailure struct {
	Status    int
	Code      string
	Type      string
	Transport bool
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type errorCoder interface {
	ErrorCode() string
}

type errorTyper interface {
	ErrorType() string
}

type transportError interface {
	Transport() bool
}

// FailureOf extracts a ProviderFailure from whatever error the provider client
// returned.
func FailureOf(err error) ProviderFailure {
	var f ProviderFailure
	if err == nil {
		return f
	}
	var sc httpStatusCoder
	if errors.As(err, &sc) {
		f.Status = sc.HTTPStatusCode()
	}
	var ec errorCoder
	if errors.As(err, &ec) {
		f.Code = ec.ErrorCode()
	}
	var et errorTyper
	if errors.As(err, &et) {
		f.Type = et.ErrorType()
	}
	if f.Status == 0 {
		var te transportError
		var ne net.Error
		switch {
		case errors.As(err, &te):
			f.Transport = te.Transport()
		case errors.Is(err, context.DeadlineExceeded):
			f.Transport = true
		case errors.As(err, &ne):
			f.Transport = true
		}
	}
	return f
}

// Classify maps a provider failure to exactly one ErrorKind. Rows are checked
// in order and the first match wins.
func Classify(f ProviderFailure) ErrorKind {
	switch {
	case f.Status == http.StatusUnauthorized || hasCode(f, "invalid_api_key", "invalid_authentication"):
		return ErrorInvalidCredentials
	case hasCode(f, "insufficient_quota", "billing_hard_limit_reached"):
		return ErrorQuotaExceeded
	case f.Status == http.StatusTooManyRequests:
		return ErrorRateLimited
	case f.Status == http.StatusBadGateway || f.Status == http.StatusServiceUnavailable ||
		f.Status == http.StatusGatewayTimeout || hasCode(f, "service_unavailable"):
		return ErrorProviderUnavailable
	case f.Transport:
		return ErrorNetwork
	case f.Status == http.StatusBadRequest || f.Status == http.StatusUnprocessableEntity:
		return ErrorInvalidRequest
	default:
		return ErrorUnknown
	}
}

func hasCode(f ProviderFailure, codes ...string) bool {
	for _, c := range codes {
		if f.Code == c || f.Type == c {
			return true
		}
	}
	return false
}
