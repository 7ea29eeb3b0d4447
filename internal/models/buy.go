package models

import "math/big"

type BuyState string

// Buy flow states
const (
	BuyStateIdle       BuyState = "idle"
	BuyStateGuarding   BuyState = "guarding"
	BuyStateSubmitting BuyState = "submitting"
	BuyStateDone       BuyState = "done"
)

// Valid buy transitions: from -> []to. Any failure returns to Idle.
var ValidBuyTransitions = map[BuyState][]BuyState{
	BuyStateIdle:       {BuyStateGuarding},
	BuyStateGuarding:   {BuyStateSubmitting, BuyStateIdle},
	BuyStateSubmitting: {BuyStateDone, BuyStateIdle},
	BuyStateDone:       {},
}

func IsValidBuyTransition(from, to BuyState) bool {
	for _, s := range ValidBuyTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Purchase is built from the NFTPurchased event, never from the cached listing.
type Purchase struct {
	TxHash     string   `json:"tx_hash"`
	TokenID    string   `json:"token_id"`
	Buyer      string   `json:"buyer"`
	PriceMinor *big.Int `json:"price_minor"`
	Account    string   `json:"account"`
}
