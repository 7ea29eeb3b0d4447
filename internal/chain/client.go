package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nft-marketplace/backend/internal/config"
	"github.com/nft-marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// Backend is the part of an EVM JSON-RPC client the marketplace needs.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Signer signs a transaction on behalf of one of the wallet's accounts.
type Signer interface {
	SignTx(ctx context.Context, account string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Client talks to the marketplace contract. Every write names the account it
// is sent from; the client never reads wallet state on its own.
type Client struct {
	backend        Backend
	signer         Signer
	abi            abi.ABI
	contract       common.Address
	contractHex    string
	rpcURL         string
	chainID        *big.Int
	confirmTimeout time.Duration
	pollInterval   time.Duration
	log            *zap.Logger
}

func NewClient(backend Backend, signer Signer, cfg *config.Config, log *zap.Logger) (*Client, error) {
	parsed, err := parseMarketplaceABI()
	if err != nil {
		return nil, fmt.Errorf("parse marketplace abi: %w", err)
	}
	c := &Client{
		backend:        backend,
		signer:         signer,
		abi:            parsed,
		contractHex:    cfg.ContractAddress,
		rpcURL:         cfg.ChainRPCURL,
		chainID:        big.NewInt(cfg.ChainID),
		confirmTimeout: cfg.TxConfirmTimeout,
		pollInterval:   2 * time.Second,
		log:            log,
	}
	if common.IsHexAddress(cfg.ContractAddress) {
		c.contract = common.HexToAddress(cfg.ContractAddress)
	} else if cfg.ContractAddress != "" {
		return nil, fmt.Errorf("invalid CONTRACT_ADDRESS %q", cfg.ContractAddress)
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = 2 * time.Minute
	}
	return c, nil
}

// SetPollInterval changes how often receipts are polled while waiting for
// confirmation.
func (c *Client) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

func (c *Client) ready() error {
	if err := config.Require(map[string]string{
		"CONTRACT_ADDRESS": c.contractHex,
		"CHAIN_RPC_URL":    c.rpcURL,
	}); err != nil {
		return err
	}
	if c.backend == nil {
		return fmt.Errorf("%w: chain backend", models.ErrConfigurationMissing)
	}
	return nil
}

// Mint submits mintNFT from the given account and waits for its receipt.
func (c *Client) Mint(ctx context.Context, from, name, description, imageRef string, priceWei *big.Int) (*models.TxReceipt, error) {
	data, err := c.abi.Pack("mintNFT", name, description, imageRef, priceWei)
	if err != nil {
		return nil, fmt.Errorf("pack mintNFT: %w", err)
	}
	return c.transact(ctx, from, data, new(big.Int))
}

// Buy submits buyNFT for tokenID paying value wei.
func (c *Client) Buy(ctx context.Context, from, tokenID string, value *big.Int) (*models.TxReceipt, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("%w: token id %q", models.ErrListingNotFound, tokenID)
	}
	data, err := c.abi.Pack("buyNFT", id)
	if err != nil {
		return nil, fmt.Errorf("pack buyNFT: %w", err)
	}
	return c.transact(ctx, from, data, value)
}

// ListAll reads every listed token from the contract.
func (c *Client) ListAll(ctx context.Context) ([]models.AssetListing, error) {
	out, err := c.call(ctx, "getAllListedNFTs")
	if err != nil {
		return nil, err
	}
	values, err := c.abi.Unpack("getAllListedNFTs", out)
	if err != nil {
		return nil, fmt.Errorf("unpack getAllListedNFTs: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	tuples := *abi.ConvertType(values[0], new([]listingTuple)).(*[]listingTuple)

	listings := make([]models.AssetListing, 0, len(tuples))
	for _, t := range tuples {
		listings = append(listings, models.AssetListing{
			ID:          t.TokenId.String(),
			Creator:     t.Creator.Hex(),
			Owner:       t.Owner.Hex(),
			Name:        t.Name,
			Description: t.Description,
			ImageRef:    t.ImageURI,
			PriceMinor:  t.Price,
			Listed:      t.IsListed,
		})
	}
	return listings, nil
}

// OwnerOf returns the current owner of tokenID.
func (c *Client) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return "", fmt.Errorf("%w: token id %q", models.ErrListingNotFound, tokenID)
	}
	out, err := c.call(ctx, "ownerOf", id)
	if err != nil {
		return "", err
	}
	values, err := c.abi.Unpack("ownerOf", out)
	if err != nil {
		return "", fmt.Errorf("unpack ownerOf: %w", err)
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected ownerOf output %T", values[0])
	}
	return owner.Hex(), nil
}

func (c *Client) call(ctx context.Context, method string, args ...any) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}

func (c *Client) transact(ctx context.Context, from string, data []byte, value *big.Int) (*models.TxReceipt, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if c.signer == nil {
		return nil, models.ErrProviderUnavailable
	}
	if !common.IsHexAddress(from) {
		return nil, fmt.Errorf("%w: invalid account %q", models.ErrWalletNotConnected, from)
	}
	sender := common.HexToAddress(from)

	nonce, err := c.backend.PendingNonceAt(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  sender,
		To:    &c.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		// eth_estimateGas fails when the call would revert
		return nil, fmt.Errorf("%w: estimate gas: %v", models.ErrTransactionReverted, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := c.signer.SignTx(ctx, from, tx, c.chainID)
	if err != nil {
		return nil, err
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	c.log.Info("transaction sent",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("from", sender.Hex()),
		zap.Uint64("nonce", nonce),
	)

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	return c.DecodeReceipt(receipt), nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.log.Debug("receipt lookup failed", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// DecodeReceipt converts a mined receipt into the marketplace's receipt,
// decoding every marketplace event emitted by the contract.
func (c *Client) DecodeReceipt(r *types.Receipt) *models.TxReceipt {
	out := &models.TxReceipt{
		TxHash:  r.TxHash.Hex(),
		Success: r.Status == types.ReceiptStatusSuccessful,
	}
	for _, lg := range r.Logs {
		if lg == nil || lg.Address != c.contract {
			continue
		}
		ev, err := c.DecodeLog(*lg)
		if err != nil {
			c.log.Debug("skipping undecodable log", zap.String("tx_hash", out.TxHash), zap.Error(err))
			continue
		}
		out.Events = append(out.Events, ev)
	}
	return out
}

// DecodeLog decodes one marketplace event log. Big integers stay *big.Int and
// addresses become checksummed hex strings.
func (c *Client) DecodeLog(lg types.Log) (models.TxEvent, error) {
	if len(lg.Topics) == 0 {
		return models.TxEvent{}, errors.New("log has no topics")
	}
	event, err := c.abi.EventByID(lg.Topics[0])
	if err != nil {
		return models.TxEvent{}, err
	}

	fields := make(map[string]any)
	if len(lg.Data) > 0 {
		if err := c.abi.UnpackIntoMap(fields, event.Name, lg.Data); err != nil {
			return models.TxEvent{}, fmt.Errorf("unpack %s data: %w", event.Name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
		return models.TxEvent{}, fmt.Errorf("parse %s topics: %w", event.Name, err)
	}

	for k, v := range fields {
		if addr, ok := v.(common.Address); ok {
			fields[k] = addr.Hex()
		}
	}
	return models.TxEvent{Name: event.Name, Fields: fields}, nil
}

// MarketEventLog is a decoded contract event with its log position.
type MarketEventLog struct {
	Event       models.TxEvent
	TxHash      string
	LogIndex    uint
	BlockNumber uint64
}

// FilterMarketEvents returns NFTMinted and NFTPurchased logs in [from, to].
func (c *Client) FilterMarketEvents(ctx context.Context, from, to uint64) ([]MarketEventLog, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.contract},
		Topics: [][]common.Hash{{
			c.abi.Events[models.EventNFTMinted].ID,
			c.abi.Events[models.EventNFTPurchased].ID,
		}},
	}
	logs, err := c.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter logs %d-%d: %w", from, to, err)
	}

	out := make([]MarketEventLog, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ev, err := c.DecodeLog(lg)
		if err != nil {
			c.log.Warn("skipping undecodable log", zap.String("tx_hash", lg.TxHash.Hex()), zap.Error(err))
			continue
		}
		out = append(out, MarketEventLog{
			Event:       ev,
			TxHash:      lg.TxHash.Hex(),
			LogIndex:    lg.Index,
			BlockNumber: lg.BlockNumber,
		})
	}
	return out, nil
}

// LatestBlock returns the current head block number.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return c.backend.BlockNumber(ctx)
}

// EventTokenID reads the tokenId field of a decoded marketplace event.
func EventTokenID(ev models.TxEvent) (string, bool) {
	v, ok := ev.Fields["tokenId"].(*big.Int)
	if !ok || v == nil {
		return "", false
	}
	return v.String(), true
}

// EventPrice reads the price field of a decoded marketplace event.
func EventPrice(ev models.TxEvent) (*big.Int, bool) {
	v, ok := ev.Fields["price"].(*big.Int)
	if !ok || v == nil {
		return nil, false
	}
	return new(big.Int).Set(v), true
}

// EventAddress reads an address field (creator or buyer).
func EventAddress(ev models.TxEvent, field string) (string, bool) {
	v, ok := ev.Fields[field].(string)
	return v, ok && v != ""
}
