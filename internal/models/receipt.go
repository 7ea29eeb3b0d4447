package models

// Event names emitted by the marketplace contract.
const (
	EventNFTMinted    = "NFTMinted"
	EventNFTPurchased = "NFTPurchased"
)

type TxEvent struct {
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
}

// TxReceipt is the confirmed outcome of one submitted transaction.
type TxReceipt struct {
	TxHash  string    `json:"tx_hash"`
	Success bool      `json:"success"`
	Events  []TxEvent `json:"events"`
}

// FindEvent returns the first event with the given name.
func (r *TxReceipt) FindEvent(name string) (TxEvent, bool) {
	if r == nil {
		return TxEvent{}, false
	}
	for _, e := range r.Events {
		if e.Name == name {
			return e, true
		}
	}
	return TxEvent{}, false
}
