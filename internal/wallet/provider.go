package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nft-marketplace/backend/internal/models"
)

// KeyProvider is a local keystore acting as the wallet provider. Accounts are
// returned in the order the keys were configured.
type KeyProvider struct {
	keys   map[common.Address]*ecdsa.PrivateKey
	order  []common.Address
	reject bool
}

// NewKeyProvider parses hex private keys (with or without 0x). When reject is
// set every access request is declined.
func NewKeyProvider(hexKeys []string, reject bool) (*KeyProvider, error) {
	p := &KeyProvider{
		keys:   make(map[common.Address]*ecdsa.PrivateKey, len(hexKeys)),
		reject: reject,
	}
	for i, hk := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hk), "0x"))
		if err != nil {
			return nil, fmt.Errorf("wallet key %d: %w", i, err)
		}
		addr := crypto.PubkeyToAddress(key.PublicKey)
		if _, dup := p.keys[addr]; dup {
			continue
		}
		p.keys[addr] = key
		p.order = append(p.order, addr)
	}
	return p, nil
}

func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.order) == 0 {
		return nil, models.ErrProviderUnavailable
	}
	if p.reject {
		return nil, models.ErrUserRejected
	}
	accounts := make([]string, len(p.order))
	for i, a := range p.order {
		accounts[i] = a.Hex()
	}
	return accounts, nil
}

// SignTx signs tx with the key of account for chainID.
func (p *KeyProvider) SignTx(ctx context.Context, account string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.reject {
		return nil, models.ErrUserRejected
	}
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("%w: invalid account %q", models.ErrWalletNotConnected, account)
	}
	key, ok := p.keys[common.HexToAddress(account)]
	if !ok {
		return nil, fmt.Errorf("%w: no key for %s", models.ErrProviderUnavailable, account)
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return signed, nil
}
