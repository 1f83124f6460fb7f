package business

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Operation kinds recorded in history.
const (
	OperationKindPurchase = "purchase"
	OperationKindClaim    = "claim"
	OperationKindCheckIn  = "check_in"
)

// Operation statuses.
const (
	OperationStatusPending  = "pending"
	OperationStatusIncluded = "included"
	OperationStatusFailed   = "failed"
)

// OperationRecord is one submitted user operation as kept in history.
type OperationRecord struct {
	ID           uuid.UUID       `json:"id"`
	Sender       common.Address  `json:"sender"`
	UserOpHash   common.Hash     `json:"user_op_hash"`
	TxHash       common.Hash     `json:"tx_hash"`
	Kind         string          `json:"kind"`
	PaymentType  PaymentType     `json:"payment_type"`
	TokenAddress *common.Address `json:"token_address,omitempty"`
	Status       string          `json:"status"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
