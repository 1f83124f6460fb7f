package business

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PaymentType identifies how gas for a user operation is paid.
type PaymentType int

const (
	// PaymentTypeSponsored means the paymaster covers gas in full.
	PaymentTypeSponsored PaymentType = 0
	// PaymentTypePrepayERC20 means gas is paid up front in an ERC-20 token.
	PaymentTypePrepayERC20 PaymentType = 1
	// PaymentTypePostpayERC20 means gas is settled in an ERC-20 token after execution.
	PaymentTypePostpayERC20 PaymentType = 2
)

// RequiresToken reports whether the payment type needs a selected ERC-20 token.
func (p PaymentType) RequiresToken() bool {
	return p == PaymentTypePrepayERC20 || p == PaymentTypePostpayERC20
}

// Valid reports whether p is one of the supported payment types.
func (p PaymentType) Valid() bool {
	return p >= PaymentTypeSponsored && p <= PaymentTypePostpayERC20
}

func (p PaymentType) String() string {
	switch p {
	case PaymentTypeSponsored:
		return "sponsored"
	case PaymentTypePrepayERC20:
		return "prepay_erc20"
	case PaymentTypePostpayERC20:
		return "postpay_erc20"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// PaymentToken is an ERC-20 token the paymaster accepts for gas, joined with
// the wallet's balance for it. Identity is the token address.
type PaymentToken struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Balance  *big.Int       `json:"balance"`
	USDPrice float64        `json:"usd_price"`
}

// ScoredToken is a PaymentToken with its derived strategy scores. Scores are
// recomputed whenever balances, gas costs, or weights change and are never
// persisted.
type ScoredToken struct {
	PaymentToken
	BalanceScore    float64 `json:"balance_score"`
	VolatilityScore float64 `json:"volatility_score"`
	SlippageScore   float64 `json:"slippage_score"`
	TotalScore      float64 `json:"total_score"`
}

// SelectionState tracks how the current payment token was chosen.
type SelectionState int

const (
	// SelectionUnset means no token has been picked yet.
	SelectionUnset SelectionState = iota
	// SelectionAuto means the strategy picked the top-ranked token.
	SelectionAuto
	// SelectionUser means the user picked a token explicitly. Auto-selection
	// must not override it until the token list changes.
	SelectionUser
)

func (s SelectionState) String() string {
	switch s {
	case SelectionAuto:
		return "auto"
	case SelectionUser:
		return "user"
	default:
		return "unset"
	}
}
