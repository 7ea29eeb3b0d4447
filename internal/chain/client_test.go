package chain

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nft-marketplace/backend/internal/config"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testContract = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	testAlice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testBob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type fakeBackend struct {
	mu          sync.Mutex
	callOutput  []byte
	estimateErr error
	sent        []*types.Transaction
	receiptFor  func(tx *types.Transaction) *types.Receipt
	pendingPoll int
	logs        []types.Log
	head        uint64
	lastQuery   ethereum.FilterQuery
}

func (f *fakeBackend) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return f.callOutput, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 210000, f.estimateErr
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingPoll > 0 {
		f.pendingPoll--
		return nil, ethereum.NotFound
	}
	for _, tx := range f.sent {
		if tx.Hash() == hash {
			r := f.receiptFor(tx)
			r.TxHash = hash
			return r, nil
		}
	}
	return nil, ethereum.NotFound
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.lastQuery = q
	return f.logs, nil
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

type recordingSigner struct {
	accounts []string
}

func (s *recordingSigner) SignTx(_ context.Context, account string, tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	s.accounts = append(s.accounts, account)
	return tx, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ChainRPCURL:      "http://rpc.test",
		ChainID:          57054,
		ContractAddress:  testContract.Hex(),
		TxConfirmTimeout: 2 * time.Second,
	}
}

func newTestClient(t *testing.T, backend Backend, signer Signer) *Client {
	t.Helper()
	c, err := NewClient(backend, signer, testConfig(), zap.NewNop())
	require.NoError(t, err)
	c.SetPollInterval(5 * time.Millisecond)
	return c
}

func eventLog(t *testing.T, c *Client, name string, tokenID int64, who common.Address, price *big.Int) *types.Log {
	t.Helper()
	ev := c.abi.Events[name]
	data, err := ev.Inputs.NonIndexed().Pack(price)
	require.NoError(t, err)
	return &types.Log{
		Address: testContract,
		Topics:  []common.Hash{ev.ID, common.BigToHash(big.NewInt(tokenID)), common.BytesToHash(who.Bytes())},
		Data:    data,
	}
}

func TestUnitsRoundTrip(t *testing.T) {
	wei, err := ParseAmount("0.45")
	require.NoError(t, err)
	assert.Equal(t, "450000000000000000", wei.String())
	assert.Equal(t, "0.45", FormatAmount(wei))
	assert.True(t, FromWei(nil).Equal(decimal.Zero))
	assert.Equal(t, "1230000000000000000", FloatToWei(1.23).String())

	_, err = ParseAmount("-1")
	assert.Error(t, err)
	_, err = ParseAmount("abc")
	assert.Error(t, err)
	_, err = ParseAmount(" ")
	assert.Error(t, err)
}

func TestMint_DecodesMintedEvent(t *testing.T) {
	backend := &fakeBackend{pendingPoll: 2}
	signer := &recordingSigner{}
	c := newTestClient(t, backend, signer)
	price := big.NewInt(450_000_000_000_000_000)
	backend.receiptFor = func(*types.Transaction) *types.Receipt {
		return &types.Receipt{
			Status: types.ReceiptStatusSuccessful,
			Logs:   []*types.Log{eventLog(t, c, models.EventNFTMinted, 12, testAlice, price)},
		}
	}

	receipt, err := c.Mint(context.Background(), testAlice.Hex(), "Dream", "cosmic", "ipfs://cid", price)
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.Equal(t, []string{testAlice.Hex()}, signer.accounts)

	ev, ok := receipt.FindEvent(models.EventNFTMinted)
	require.True(t, ok)
	id, ok := EventTokenID(ev)
	require.True(t, ok)
	assert.Equal(t, "12", id)
	creator, ok := EventAddress(ev, "creator")
	require.True(t, ok)
	assert.Equal(t, testAlice.Hex(), creator)
	got, ok := EventPrice(ev)
	require.True(t, ok)
	assert.Equal(t, 0, got.Cmp(price))

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, testContract, *tx.To())
	assert.Equal(t, 0, tx.Value().Sign())
}

func TestBuy_SendsValueAndDecodesPurchase(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, &recordingSigner{})
	price := big.NewInt(2_000_000_000_000_000_000)
	backend.receiptFor = func(*types.Transaction) *types.Receipt {
		return &types.Receipt{
			Status: types.ReceiptStatusSuccessful,
			Logs:   []*types.Log{eventLog(t, c, models.EventNFTPurchased, 3, testBob, price)},
		}
	}

	receipt, err := c.Buy(context.Background(), testBob.Hex(), "3", price)
	require.NoError(t, err)
	ev, ok := receipt.FindEvent(models.EventNFTPurchased)
	require.True(t, ok)
	buyer, _ := EventAddress(ev, "buyer")
	assert.Equal(t, testBob.Hex(), buyer)
	assert.Equal(t, 0, backend.sent[0].Value().Cmp(price))
}

func TestBuy_RevertedReceiptHasNoEvents(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, &recordingSigner{})
	backend.receiptFor = func(*types.Transaction) *types.Receipt {
		return &types.Receipt{Status: types.ReceiptStatusFailed}
	}

	receipt, err := c.Buy(context.Background(), testBob.Hex(), "3", big.NewInt(1))
	require.NoError(t, err)
	assert.False(t, receipt.Success)
	_, ok := receipt.FindEvent(models.EventNFTPurchased)
	assert.False(t, ok)
}

func TestTransact_EstimateFailureIsRevert(t *testing.T) {
	backend := &fakeBackend{estimateErr: assert.AnError}
	c := newTestClient(t, backend, &recordingSigner{})

	_, err := c.Buy(context.Background(), testBob.Hex(), "3", big.NewInt(1))
	assert.ErrorIs(t, err, models.ErrTransactionReverted)
	assert.Empty(t, backend.sent)
}

func TestClient_MissingConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.ContractAddress = ""
	c, err := NewClient(&fakeBackend{}, &recordingSigner{}, cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = c.ListAll(context.Background())
	assert.ErrorIs(t, err, models.ErrConfigurationMissing)
	assert.Contains(t, err.Error(), "CONTRACT_ADDRESS")

	_, err = c.Mint(context.Background(), testAlice.Hex(), "a", "b", "c", big.NewInt(1))
	assert.ErrorIs(t, err, models.ErrConfigurationMissing)

	c, err = NewClient(nil, nil, testConfig(), zap.NewNop())
	require.NoError(t, err)
	_, err = c.OwnerOf(context.Background(), "1")
	assert.ErrorIs(t, err, models.ErrConfigurationMissing)
}

func TestNewClient_InvalidAddress(t *testing.T) {
	cfg := testConfig()
	cfg.ContractAddress = "not-an-address"
	_, err := NewClient(nil, nil, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestListAll_UnpacksTuples(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, nil)
	out, err := c.abi.Methods["getAllListedNFTs"].Outputs.Pack([]listingTuple{
		{TokenId: big.NewInt(1), Creator: testAlice, Owner: testBob, Name: "Cosmic", Description: "stars", ImageURI: "ipfs://a", Price: big.NewInt(5), IsListed: true},
		{TokenId: big.NewInt(2), Creator: testBob, Owner: testBob, Name: "Neural", Description: "nets", ImageURI: "ipfs://b", Price: big.NewInt(9), IsListed: false},
	})
	require.NoError(t, err)
	backend.callOutput = out

	listings, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "1", listings[0].ID)
	assert.Equal(t, testBob.Hex(), listings[0].Owner)
	assert.Equal(t, "ipfs://a", listings[0].ImageRef)
	assert.True(t, listings[0].Listed)
	assert.False(t, listings[1].Listed)
	assert.Equal(t, int64(9), listings[1].PriceMinor.Int64())
}

func TestOwnerOf(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestClient(t, backend, nil)
	out, err := c.abi.Methods["ownerOf"].Outputs.Pack(testAlice)
	require.NoError(t, err)
	backend.callOutput = out

	owner, err := c.OwnerOf(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, testAlice.Hex(), owner)

	_, err = c.OwnerOf(context.Background(), "x")
	assert.ErrorIs(t, err, models.ErrListingNotFound)
}

func TestFilterMarketEvents(t *testing.T) {
	backend := &fakeBackend{head: 100}
	c := newTestClient(t, backend, nil)
	minted := eventLog(t, c, models.EventNFTMinted, 1, testAlice, big.NewInt(5))
	minted.TxHash = common.HexToHash("0x01")
	minted.Index = 2
	minted.BlockNumber = 90
	removed := eventLog(t, c, models.EventNFTPurchased, 1, testBob, big.NewInt(5))
	removed.Removed = true
	backend.logs = []types.Log{*minted, *removed}

	head, err := c.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), head)

	events, err := c.FilterMarketEvents(context.Background(), 80, head)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventNFTMinted, events[0].Event.Name)
	assert.Equal(t, uint(2), events[0].LogIndex)
	assert.Equal(t, uint64(90), events[0].BlockNumber)
	assert.Equal(t, []common.Address{testContract}, backend.lastQuery.Addresses)
	assert.Len(t, backend.lastQuery.Topics[0], 2)
}
