package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackPurchaseRoundTrip(t *testing.T) {
	data, err := PackPurchase(42, []uint32{7, 13, 21})
	require.NoError(t, err)

	method := lotteryABI.Methods["purchase"]
	assert.Equal(t, method.ID, data[:4])

	values, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), values[0])
	assert.Equal(t, []uint32{7, 13, 21}, values[1])
}

func TestPackClaimRoundTrip(t *testing.T) {
	data, err := PackClaim(9)
	require.NoError(t, err)

	method := lotteryABI.Methods["claim"]
	assert.Equal(t, method.ID, data[:4])

	values, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9), values[0])
}

func TestPackCheckInIsSelectorOnly(t *testing.T) {
	data, err := PackCheckIn()
	require.NoError(t, err)
	assert.Len(t, data, 4)
	assert.Equal(t, lotteryABI.Methods["checkIn"].ID, data)
}

func TestPackApproveRoundTrip(t *testing.T) {
	spender := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	data, err := PackApprove(spender, big.NewInt(1_000_000))
	require.NoError(t, err)

	method := erc20ABI.Methods["approve"]
	values, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, spender, values[0])
	assert.Equal(t, big.NewInt(1_000_000), values[1])
}

func TestPackExecuteBatch(t *testing.T) {
	dest := common.HexToAddress("0x00000000000000000000000000000000000a0a0a")
	inner, err := PackClaim(1)
	require.NoError(t, err)

	data, err := PackExecuteBatch([]common.Address{dest, dest}, [][]byte{inner, inner})
	require.NoError(t, err)

	method := accountABI.Methods["executeBatch"]
	assert.Equal(t, method.ID, data[:4])

	values, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, []common.Address{dest, dest}, values[0])
	assert.Equal(t, [][]byte{inner, inner}, values[1])
}

func TestPackExecuteBatchLengthMismatch(t *testing.T) {
	dest := common.HexToAddress("0x00000000000000000000000000000000000a0a0a")
	_, err := PackExecuteBatch([]common.Address{dest}, nil)
	assert.Error(t, err)
}
