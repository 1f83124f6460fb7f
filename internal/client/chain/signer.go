package chain

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/lottolink/lottolink-api/internal/client/bundler"
)

var (
	addressType = mustNewType("address")
	uint256Type = mustNewType("uint256")
	bytes32Type = mustNewType("bytes32")

	// Field order fixed by EntryPoint v0.6 getUserOpHash.
	userOpPackArgs = abi.Arguments{
		{Type: addressType}, // sender
		{Type: uint256Type}, // nonce
		{Type: bytes32Type}, // keccak(initCode)
		{Type: bytes32Type}, // keccak(callData)
		{Type: uint256Type}, // callGasLimit
		{Type: uint256Type}, // verificationGasLimit
		{Type: uint256Type}, // preVerificationGas
		{Type: uint256Type}, // maxFeePerGas
		{Type: uint256Type}, // maxPriorityFeePerGas
		{Type: bytes32Type}, // keccak(paymasterAndData)
	}

	userOpHashArgs = abi.Arguments{
		{Type: bytes32Type}, // packed user op hash
		{Type: addressType}, // entry point
		{Type: uint256Type}, // chain id
	}
)

func mustNewType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic("invalid abi type " + name + ": " + err.Error())
	}
	return t
}

func bigOrZero(v *hexutil.Big) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return (*big.Int)(v)
}

// UserOpHash computes the EntryPoint v0.6 hash the account owner signs.
func UserOpHash(op *bundler.UserOperation, entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	packed, err := userOpPackArgs.Pack(
		op.Sender,
		bigOrZero(op.Nonce),
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		bigOrZero(op.CallGasLimit),
		bigOrZero(op.VerificationGasLimit),
		bigOrZero(op.PreVerificationGas),
		bigOrZero(op.MaxFeePerGas),
		bigOrZero(op.MaxPriorityFeePerGas),
		crypto.Keccak256Hash(op.PaymasterAndData),
	)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack user operation")
	}

	enc, err := userOpHashArgs.Pack(crypto.Keccak256Hash(packed), entryPoint, chainID)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack user operation hash")
	}
	return crypto.Keccak256Hash(enc), nil
}

// ECDSASigner signs user operations with the account owner's key, using the
// eth_sign message prefix the SimpleAccount validates against.
type ECDSASigner struct {
	key *ecdsa.PrivateKey
}

// NewECDSASigner wraps an owner key.
func NewECDSASigner(key *ecdsa.PrivateKey) *ECDSASigner {
	return &ECDSASigner{key: key}
}

// Address returns the owner EOA address.
func (s *ECDSASigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignUserOp produces the operation signature for the given EntryPoint and chain.
func (s *ECDSASigner) SignUserOp(op *bundler.UserOperation, entryPoint common.Address, chainID *big.Int) ([]byte, error) {
	hash, err := UserOpHash(op, entryPoint, chainID)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign user operation")
	}
	// Contracts expect the legacy 27/28 recovery id.
	sig[64] += 27
	return sig, nil
}
