package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// PackPurchase encodes a lottery ticket purchase call.
func PackPurchase(roundID uint64, numbers []uint32) ([]byte, error) {
	data, err := lotteryABI.Pack("purchase", new(big.Int).SetUint64(roundID), numbers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack purchase call")
	}
	return data, nil
}

// PackClaim encodes a prize claim call for a round.
func PackClaim(roundID uint64) ([]byte, error) {
	data, err := lotteryABI.Pack("claim", new(big.Int).SetUint64(roundID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack claim call")
	}
	return data, nil
}

// PackCheckIn encodes the daily check-in call.
func PackCheckIn() ([]byte, error) {
	data, err := lotteryABI.Pack("checkIn")
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack checkIn call")
	}
	return data, nil
}

// PackApprove encodes an ERC-20 approve call.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack approve call")
	}
	return data, nil
}

// PackExecuteBatch encodes the smart account's executeBatch wrapper so a set
// of contract calls executes atomically in one user operation.
func PackExecuteBatch(dests []common.Address, calls [][]byte) ([]byte, error) {
	if len(dests) != len(calls) {
		return nil, errors.Errorf("executeBatch length mismatch: %d targets, %d calls", len(dests), len(calls))
	}
	data, err := accountABI.Pack("executeBatch", dests, calls)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack executeBatch call")
	}
	return data, nil
}
