package paymaster

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SupportedToken is one ERC-20 the paymaster accepts for gas payment.
type SupportedToken struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	USDPrice float64        `json:"usdPrice"`
}

// NativeInfo describes the chain's native currency as priced by the paymaster.
type NativeInfo struct {
	Symbol   string  `json:"symbol"`
	Decimals uint8   `json:"decimals"`
	USDPrice float64 `json:"usdPrice"`
}

// SupportedTokensResult is the pm_supported_tokens response.
type SupportedTokensResult struct {
	Tokens  []SupportedToken `json:"tokens"`
	Native  NativeInfo       `json:"native"`
	FreeGas bool             `json:"freeGas"`
}

// TokenCostResult is the pm_estimate_erc20_token_cost response: the gas cost
// of the operation denominated in the requested token's smallest unit.
type TokenCostResult struct {
	Token common.Address `json:"token"`
	Cost  *hexutil.Big   `json:"cost"`
}

// SponsorResult is the pm_sponsor_user_operation response.
type SponsorResult struct {
	PaymasterAndData hexutil.Bytes `json:"paymasterAndData"`
}
