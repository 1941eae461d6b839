package bridgedto

// Error is the body of every failed request and the error member of a
// websocket reply.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "engine bridge error"
}

const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidFEN     = "INVALID_FEN"
	CodeNotFound       = "NOT_FOUND"
	CodeTimeout        = "ENGINE_TIMEOUT"
	CodeUnavailable    = "ENGINE_UNAVAILABLE"
	CodeNoBestMove     = "NO_BEST_MOVE"
	CodeRateLimited    = "RATE_LIMITED"
	CodeCanceled       = "CANCELED"
	CodeInternal       = "INTERNAL"
)
