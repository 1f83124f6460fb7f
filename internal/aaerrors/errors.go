package aaerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the typed failure category surfaced to callers. Everything the
// bundler, paymaster, or chain returns is folded into one of these at the
// client boundary so nothing above it has to inspect raw provider strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindWalletNotConnected
	KindNoSelections
	KindMissingPaymentToken
	KindNeedsWalletSetup
	KindInsufficientAllowance
	KindInsufficientBalance
	KindSponsorshipUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindWalletNotConnected:
		return "wallet_not_connected"
	case KindNoSelections:
		return "no_selections"
	case KindMissingPaymentToken:
		return "missing_payment_token"
	case KindNeedsWalletSetup:
		return "needs_wallet_setup"
	case KindInsufficientAllowance:
		return "insufficient_allowance"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindSponsorshipUnavailable:
		return "sponsorship_unavailable"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the underlying failure. The raw message is
// preserved so unknown errors can be shown verbatim.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a validation-style error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), cause: err}
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// signatures maps known substrings of provider/bundler error messages to
// kinds. The services define no structured codes, so matching message text is
// the only classification available; it lives here and nowhere else.
var signatures = []struct {
	substr string
	kind   Kind
}{
	// Paymaster refusing or unable to sponsor.
	{"sponsorship unavailable", KindSponsorshipUnavailable},
	{"free gas not available", KindSponsorshipUnavailable},
	{"sponsorship quota", KindSponsorshipUnavailable},
	{"aa31 paymaster deposit too low", KindSponsorshipUnavailable},
	{"aa33 reverted", KindSponsorshipUnavailable},
	{"paymaster rejected", KindSponsorshipUnavailable},

	// ERC-20 approval problems.
	{"insufficient allowance", KindInsufficientAllowance},
	{"transfer amount exceeds allowance", KindInsufficientAllowance},

	// Not enough token or native balance.
	{"insufficient balance", KindInsufficientBalance},
	{"insufficient funds", KindInsufficientBalance},
	{"transfer amount exceeds balance", KindInsufficientBalance},

	// Wallet not deployed or not prefunded.
	{"aa20 account not deployed", KindNeedsWalletSetup},
	{"aa21 didn't pay prefund", KindNeedsWalletSetup},
	{"sender has no deposit", KindNeedsWalletSetup},
}

// Classify folds an external error into the taxonomy by matching known
// message signatures. Unmatched errors become KindUnknown with the raw
// message passed through.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range signatures {
		if strings.Contains(msg, sig.substr) {
			return Wrap(sig.kind, err)
		}
	}
	return Wrap(KindUnknown, err)
}
