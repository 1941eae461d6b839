package hostapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/park285/cheese-engine-bridge/internal/chess"
	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
	"github.com/park285/cheese-engine-bridge/internal/service/review"
	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

var errRateLimited = errors.New("rate limit exceeded")

// classify maps an error to its HTTP status and wire error.
func classify(err error) (int, bridgedto.Error) {
	msg := err.Error()
	switch {
	case errors.Is(err, chess.ErrInvalidFEN):
		return http.StatusBadRequest, bridgedto.Error{Code: bridgedto.CodeInvalidFEN, Message: msg}
	case chess.IsInvalidRequest(err):
		return http.StatusBadRequest, bridgedto.Error{Code: bridgedto.CodeInvalidRequest, Message: msg}
	case errors.Is(err, review.ErrNotFound):
		return http.StatusNotFound, bridgedto.Error{Code: bridgedto.CodeNotFound, Message: msg}
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, bridgedto.Error{Code: bridgedto.CodeRateLimited, Message: msg, Retryable: true}
	case errors.Is(err, uci.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, bridgedto.Error{Code: bridgedto.CodeTimeout, Message: msg, Retryable: true}
	case errors.Is(err, uci.ErrNoBestMove):
		return http.StatusBadGateway, bridgedto.Error{Code: bridgedto.CodeNoBestMove, Message: msg}
	case errors.Is(err, uci.ErrSpawn), errors.Is(err, uci.ErrHandshake), errors.Is(err, uci.ErrEngineExited),
		errors.Is(err, uci.ErrQueueClosed), errors.Is(err, uci.ErrNotReady), errors.Is(err, uci.ErrSupervisorClosed):
		return http.StatusServiceUnavailable, bridgedto.Error{Code: bridgedto.CodeUnavailable, Message: msg, Retryable: true}
	case errors.Is(err, context.Canceled):
		// nginx convention for a client that went away
		return 499, bridgedto.Error{Code: bridgedto.CodeCanceled, Message: msg}
	default:
		return http.StatusInternalServerError, bridgedto.Error{Code: bridgedto.CodeInternal, Message: msg}
	}
}

func invalidRequest(msg string) bridgedto.Error {
	return bridgedto.Error{Code: bridgedto.CodeInvalidRequest, Message: msg}
}
