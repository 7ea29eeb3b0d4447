package models

import "errors"

var (
	ErrProviderUnavailable    = errors.New("wallet provider unavailable")
	ErrUserRejected           = errors.New("user rejected the request")
	ErrConnectInProgress      = errors.New("wallet connection already in progress")
	ErrAllProvidersFailed     = errors.New("all image providers failed")
	ErrPromptTooShort         = errors.New("prompt too short")
	ErrRecommendationService  = errors.New("recommendation service error")
	ErrWalletNotConnected     = errors.New("wallet not connected")
	ErrSelfPurchaseDisallowed = errors.New("cannot buy own listing")
	ErrTransactionReverted    = errors.New("transaction reverted")
	ErrConfigurationMissing   = errors.New("service unavailable: configuration missing")
	ErrSubmissionInProgress   = errors.New("submission already in progress")
	ErrDraftNotFound          = errors.New("mint draft not found")
	ErrInvalidStep            = errors.New("invalid mint step")
	ErrInvalidPrice           = errors.New("price must be positive")
	ErrDescriptionTooShort    = errors.New("description too short")
	ErrListingNotFound        = errors.New("listing not found")
	ErrSessionNotFound        = errors.New("chat session not found")
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrProviderUnavailable, "No wallet provider found. Please install a wallet extension such as MetaMask to continue."},
	{ErrUserRejected, "The wallet request was rejected. Approve the request in your wallet to continue."},
	{ErrConnectInProgress, "A wallet connection is already pending. Finish it in your wallet first."},
	{ErrAllProvidersFailed, "Image generation failed on every provider. Please try again."},
	{ErrPromptTooShort, "Add a longer description before generating images."},
	{ErrRecommendationService, "Sorry, I couldn't reach the recommendation service right now. Please try again in a moment."},
	{ErrWalletNotConnected, "Connect your wallet to continue."},
	{ErrSelfPurchaseDisallowed, "You already own this listing and cannot buy it."},
	{ErrTransactionReverted, "The transaction was not confirmed on chain. No retry was attempted."},
	{ErrConfigurationMissing, "This service is not configured and is currently unavailable."},
	{ErrSubmissionInProgress, "A submission is already in progress. Wait for it to finish."},
	{ErrDraftNotFound, "This mint draft no longer exists. Start a new one."},
	{ErrInvalidStep, "That action is not available at this step."},
	{ErrInvalidPrice, "Set a price greater than zero."},
	{ErrDescriptionTooShort, "Add a longer description to get a price suggestion."},
	{ErrListingNotFound, "That listing could not be found. Refresh the marketplace."},
	{ErrSessionNotFound, "This conversation has ended. Open a new chat."},
}

// UserMessage maps an error to the message shown to the user. Unknown errors
// get a generic fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong. Please try again."
}
