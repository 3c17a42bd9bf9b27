package dialog

import (
	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

const (
	textChooseNetwork = "Choose a network:"
	textInvalidPair   = "Invalid token pair"
	textUnknownAction = "Unknown action"
	textNoPairs       = "No pairs are available for this network"
	labelBack         = "« Back"
)

// UserMessage turns a request failure into a short message safe to show in chat.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	e, ok := clierr.As(err)
	if !ok {
		return "Something went wrong while fetching the estimate"
	}
	switch e.Code {
	case clierr.CodeInvalidAmount:
		return "Invalid amount for this token"
	case clierr.CodeUnknownToken:
		return "Unknown token"
	case clierr.CodeNetworkUnavailable:
		return "Network error contacting the pricing service, please try again"
	case clierr.CodeHTTP:
		return e.Message
	case clierr.CodeMalformedResponse:
		return "The pricing service returned an unexpected response"
	case clierr.CodeSignerUnavailable:
		return "Relayer signer is not configured; transactions cannot be submitted"
	case clierr.CodePollTimeout:
		return "Status unknown, check later"
	default:
		return "Something went wrong while fetching the estimate"
	}
}
