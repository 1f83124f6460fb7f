package bundler

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// UserOperation is the ERC-4337 v0.6 wire shape submitted to the bundler.
// hexutil types keep the JSON encoding in the 0x-prefixed form the bundler
// and paymaster expect.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *hexutil.Big   `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *hexutil.Big   `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big   `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big   `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// dummySignature is a well-formed 65-byte ECDSA signature used for gas
// estimation before the real signature exists.
var dummySignature = make([]byte, 65)

// NewUserOperation returns an operation with zeroed gas fields and a dummy
// signature, ready for estimation.
func NewUserOperation(sender common.Address, nonce *big.Int, initCode, callData []byte) *UserOperation {
	return &UserOperation{
		Sender:               sender,
		Nonce:                (*hexutil.Big)(nonce),
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         (*hexutil.Big)(big.NewInt(0)),
		VerificationGasLimit: (*hexutil.Big)(big.NewInt(0)),
		PreVerificationGas:   (*hexutil.Big)(big.NewInt(0)),
		MaxFeePerGas:         (*hexutil.Big)(big.NewInt(1)),
		MaxPriorityFeePerGas: (*hexutil.Big)(big.NewInt(1)),
		Signature:            dummySignature,
	}
}

// ApplyGasEstimates copies bundler gas estimates onto the operation.
func (op *UserOperation) ApplyGasEstimates(est *GasEstimates) {
	op.CallGasLimit = est.CallGasLimit
	op.VerificationGasLimit = est.VerificationGasLimit
	op.PreVerificationGas = est.PreVerificationGas
}

// GasEstimates is the result of eth_estimateUserOperationGas.
type GasEstimates struct {
	PreVerificationGas   *hexutil.Big `json:"preVerificationGas"`
	VerificationGasLimit *hexutil.Big `json:"verificationGasLimit"`
	CallGasLimit         *hexutil.Big `json:"callGasLimit"`
}

// UserOpReceipt is the result of eth_getUserOperationReceipt.
type UserOpReceipt struct {
	UserOpHash    common.Hash    `json:"userOpHash"`
	Sender        common.Address `json:"sender"`
	Paymaster     common.Address `json:"paymaster"`
	Nonce         *hexutil.Big   `json:"nonce"`
	Success       bool           `json:"success"`
	Reason        string         `json:"reason"`
	ActualGasCost *hexutil.Big   `json:"actualGasCost"`
	ActualGasUsed *hexutil.Big   `json:"actualGasUsed"`
	Logs          []*types.Log   `json:"logs"`
	Receipt       *TxReceipt     `json:"receipt"`
}

// TxReceipt is the inclusion receipt of the bundle transaction that carried
// the user operation.
type TxReceipt struct {
	TransactionHash common.Hash  `json:"transactionHash"`
	BlockHash       common.Hash  `json:"blockHash"`
	BlockNumber     *hexutil.Big `json:"blockNumber"`
	GasUsed         *hexutil.Big `json:"gasUsed"`
}
