package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyA = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	testKeyB = "0x8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a"
)

func TestKeyProvider_AccountsInOrder(t *testing.T) {
	p, err := NewKeyProvider([]string{testKeyA, testKeyB, testKeyA}, false)
	require.NoError(t, err)

	accounts, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	keyA, _ := crypto.HexToECDSA(testKeyA)
	assert.Equal(t, crypto.PubkeyToAddress(keyA.PublicKey).Hex(), accounts[0])
}

func TestKeyProvider_Errors(t *testing.T) {
	_, err := NewKeyProvider([]string{"zz"}, false)
	assert.Error(t, err)

	empty, err := NewKeyProvider(nil, false)
	require.NoError(t, err)
	_, err = empty.RequestAccounts(context.Background())
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)

	rejecting, err := NewKeyProvider([]string{testKeyA}, true)
	require.NoError(t, err)
	_, err = rejecting.RequestAccounts(context.Background())
	assert.ErrorIs(t, err, models.ErrUserRejected)
}

func TestKeyProvider_SignTx(t *testing.T) {
	p, err := NewKeyProvider([]string{testKeyA}, false)
	require.NoError(t, err)
	accounts, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)

	to := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, To: &to, Value: big.NewInt(5), Gas: 21000, GasPrice: big.NewInt(1)})
	chainID := big.NewInt(57054)

	signed, err := p.SignTx(context.Background(), accounts[0], tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, accounts[0], sender.Hex())

	_, err = p.SignTx(context.Background(), "0x00000000000000000000000000000000000000b2", tx, chainID)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	_, err = p.SignTx(context.Background(), "nope", tx, chainID)
	assert.ErrorIs(t, err, models.ErrWalletNotConnected)
}
