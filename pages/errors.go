package pages

import (
	"context"
	"errors"
	"net/http"

	"github.com/eringen/storysite/cms"
)

// ErrNoSource is returned by constructors given an Env without a Source.
var ErrNoSource = errors.New("pages: no content source configured")

// StatusFor maps a content error to the HTTP status of the page that
// failed with it.
func StatusFor(err error) int {
	var (
		ne *cms.NetworkError
		ae *cms.APIError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, cms.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cms.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, cms.ErrUnauthorized), errors.As(err, &ne), errors.As(err, &ae):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Message returns the text shown to visitors for err. Transport and
// credential failures get a generic message so request URLs never reach
// the page.
func Message(err error) string {
	var (
		ve *cms.ValidationError
		ne *cms.NetworkError
		ae *cms.APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return capitalize(ve.Msg)
	case errors.Is(err, cms.ErrNotFound):
		return "The requested content could not be found."
	case errors.Is(err, cms.ErrUnauthorized):
		return "The content service rejected the site's credentials."
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne):
		return "The content service could not be reached. Please try again."
	case errors.As(err, &ae):
		return "The content service returned an unexpected response."
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
