package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	// Authorization pipeline sentinels.
	ErrIdentityRequired  = fmt.Errorf("identity required")
	ErrUnknownIdentity   = fmt.Errorf("unauthorized identity")
	ErrLockedOut         = fmt.Errorf("identity locked out")
	ErrPermissionDenied  = fmt.Errorf("missing permission")
	ErrRateLimited       = fmt.Errorf("rate limit exceeded")
	ErrCampaignForbidden = fmt.Errorf("campaign not in allowed scope")

	// Routing and capability sentinels.
	ErrRoutingAmbiguous = fmt.Errorf("intent could not be determined")
	ErrCapabilityFailed = fmt.Errorf("capability invocation failed")

	// Delivery sentinels.
	ErrDeliveryRetryable = fmt.Errorf("transient delivery failure")
	ErrDeliveryTerminal  = fmt.Errorf("terminal delivery failure")
	ErrNoDestination     = fmt.Errorf("missing destination reference")
	ErrEmptyMessage      = fmt.Errorf("missing message body")
	ErrTransportAuth     = fmt.Errorf("transport rejected credentials")

	// Infrastructure sentinels.
	ErrAuditWrite = fmt.Errorf("audit log write failed")
	ErrConfigLoad = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Gate.Authorize")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrDeliveryRetryable)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

// Error codes. Every sentinel error maps to exactly one code.
const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeIdentityRequired  ErrorCode = "IDENTITY_REQUIRED"
	CodeUnknownIdentity   ErrorCode = "UNKNOWN_IDENTITY"
	CodeLockedOut         ErrorCode = "LOCKED_OUT"
	CodePermissionDenied  ErrorCode = "PERMISSION_DENIED"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeCampaignForbidden ErrorCode = "CAMPAIGN_FORBIDDEN"
	CodeRoutingAmbiguous  ErrorCode = "ROUTING_AMBIGUOUS"
	CodeCapabilityFailed  ErrorCode = "CAPABILITY_FAILED"
	CodeDeliveryRetryable ErrorCode = "DELIVERY_RETRYABLE"
	CodeDeliveryTerminal  ErrorCode = "DELIVERY_TERMINAL"
	CodeNoDestination     ErrorCode = "NO_DESTINATION"
	CodeEmptyMessage      ErrorCode = "EMPTY_MESSAGE"
	CodeTransportAuth     ErrorCode = "TRANSPORT_AUTH"
	CodeAuditWrite        ErrorCode = "AUDIT_WRITE"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrIdentityRequired:  CodeIdentityRequired,
	ErrUnknownIdentity:   CodeUnknownIdentity,
	ErrLockedOut:         CodeLockedOut,
	ErrPermissionDenied:  CodePermissionDenied,
	ErrRateLimited:       CodeRateLimited,
	ErrCampaignForbidden: CodeCampaignForbidden,
	ErrRoutingAmbiguous:  CodeRoutingAmbiguous,
	ErrCapabilityFailed:  CodeCapabilityFailed,
	ErrDeliveryRetryable: CodeDeliveryRetryable,
	ErrDeliveryTerminal:  CodeDeliveryTerminal,
	ErrNoDestination:     CodeNoDestination,
	ErrEmptyMessage:      CodeEmptyMessage,
	ErrTransportAuth:     CodeTransportAuth,
	ErrAuditWrite:        CodeAuditWrite,
	ErrConfigLoad:        CodeConfigLoad,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
