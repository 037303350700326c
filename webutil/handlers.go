package webutil

import (
	"errors"
	"net/http"

	"github.com/coreybb/consumo/logging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// AppHandler represents a handler function that returns an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to the standard http.HandlerFunc signature.
// It executes the AppHandler and handles any returned error by logging appropriately
// and sending a standardized JSON error response.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		err := handler(ww, r)
		if err == nil {
			// The handler is assumed to have written its own successful response.
			return
		}

		var httpErr *HTTPError
		var publicMessage string
		var statusCode int
		logger := logging.Ctx(r.Context())

		switch {
		case errors.As(err, &httpErr):
			statusCode = httpErr.Code
			publicMessage = httpErr.Message
			level := zerolog.WarnLevel // Client errors are warnings server-side
			if statusCode >= 500 {
				level = zerolog.ErrorLevel
			}
			event := logger.WithLevel(level).
				Int("code", httpErr.Code).
				Str("msg", httpErr.Message).
				Str("path", r.URL.Path).
				Str("method", r.Method)
			// Log the underlying cause if present and different from the public message
			if cause := errors.Unwrap(httpErr); cause != nil && cause.Error() != publicMessage {
				event = event.AnErr("cause", cause)
			}
			event.Msg("Client error response")

		default:
			statusCode = http.StatusInternalServerError
			publicMessage = msgInternalServer
			logger.Error().
				Err(err).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg("Unhandled internal error")
		}

		if ww.Status() != 0 {
			logger.Warn().
				Err(err).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg("Handler returned error after writing response header")
			return
		}

		RespondWithError(ww, statusCode, publicMessage)
	}
}
