package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrorKind classifies aggregation failures so callers can decide between
// retrying, degrading, failing one account, or aborting the run.
type ErrorKind string

const (
	KindConfiguration         ErrorKind = "configuration"
	KindAuthorization         ErrorKind = "authorization"
	KindThrottled             ErrorKind = "throttled"
	KindTransient             ErrorKind = "transient"
	KindPartialData           ErrorKind = "partial_data"
	KindInconsistentReference ErrorKind = "inconsistent_reference"
	KindUnknown               ErrorKind = "unknown"
)

// StageError identifies which account and traversal stage failed.
type StageError struct {
	Account string
	Stage   string
	Kind    ErrorKind
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("account %s: %s: %v", e.Account, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(account, stage string, err error) *StageError {
	return &StageError{Account: account, Stage: stage, Kind: Classify(err), Err: err}
}

var throttleCodes = map[string]bool{
	"ThrottlingException":                    true,
	"Throttling":                             true,
	"TooManyRequestsException":               true,
	"RequestLimitExceeded":                   true,
	"ProvisionedThroughputExceededException": true,
}

var authCodes = map[string]bool{
	"AccessDeniedException": true,
	"AccessDenied":          true,
	"UnauthorizedException": true,
	"UnauthorizedAccess":    true,
}

var notFoundCodes = map[string]bool{
	"ResourceNotFoundException": true,
	"NoSuchEntity":              true,
	"NotFoundException":         true,
}

// Classify maps an error to its ErrorKind. StageError wrappers are honored so
// a classified error keeps its kind across layers.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, ErrTruncated) {
		return KindPartialData
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		code := ae.ErrorCode()
		switch {
		case throttleCodes[code]:
			return KindThrottled
		case authCodes[code]:
			return KindAuthorization
		case notFoundCodes[code]:
			return KindInconsistentReference
		case code == "ValidationException":
			return KindConfiguration
		case ae.ErrorFault() == smithy.FaultServer:
			return KindTransient
		}
		return KindUnknown
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return KindTransient
	}

	return KindUnknown
}

// isRetryable reports whether the error is worth another attempt. Context
// cancellation is never retried even though it classifies as transient.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch Classify(err) {
	case KindThrottled, KindTransient:
		return true
	}
	return false
}

// isNotFound reports whether the error means a referenced object no longer
// resolves (deleted between enumeration and resolution).
func isNotFound(err error) bool {
	return Classify(err) == KindInconsistentReference
}
