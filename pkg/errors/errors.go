// fine-payment-bridge/pkg/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes shared by every component of the bridge.
const (
	CodeInvalidInput   = "invalid_input"
	CodeForbidden      = "forbidden"
	CodeUpstreamLookup = "upstream_lookup"
	CodeInvalidAmount  = "invalid_amount"
	CodeConversion     = "conversion"
	CodeCheckout       = "checkout"
	CodeSignature      = "signature"
	CodeReconcile      = "reconcile"
)

type E struct {
	Code    string
	Message string
	Err     error
}

func (e E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e E) Unwrap() error { return e.Err }

// Is matches any E carrying the same code, so errors.Is(err, errors.E{Code: CodeForbidden})
// works without comparing messages.
func (e E) Is(target error) bool {
	var t E
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func Wrap(code, msg string, err error) error {
	return E{Code: code, Message: msg, Err: err}
}

func New(code, msg string) error {
	return E{Code: code, Message: msg}
}

// CodeOf returns the code of the outermost E in the chain, or "" if there is none.
func CodeOf(err error) string {
	var e E
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a code to the status returned to HTTP callers.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput, CodeSignature:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
