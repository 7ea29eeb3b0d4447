package dto

type AccountsChangedRequest struct {
	Accounts []string `json:"accounts"`
}

type SuggestPriceRequest struct {
	Description string `json:"description"`
}

type GenerateImagesRequest struct {
	Prompt    string   `json:"prompt"`
	Providers []string `json:"providers,omitempty"` // defaults to IMAGE_PROVIDERS
}

// UpdateMintRequest mirrors services.MintUpdate; absent fields are unchanged.
type UpdateMintRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageRef    *string `json:"image_ref,omitempty"`
	Price       *string `json:"price,omitempty"` // decimal, e.g. "0.45"
}

type AttachImageRequest struct {
	ImageBase64 string `json:"image_base64"` // raw base64 or a data URI
	ContentType string `json:"content_type,omitempty"`
}

type ChatMessageRequest struct {
	Text string `json:"text"`
}
