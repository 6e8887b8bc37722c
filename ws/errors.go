package ws

import "errors"

var (
	// ErrMissingToken indicates an upgrade request carrying no
	// authentication token in any accepted location.
	ErrMissingToken = errors.New("missing authentication token")

	// ErrInvalidToken indicates a token the authenticator rejected.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrSendBufferFull indicates a frame dropped because the client's
	// outbound buffer was full. Slow clients shed load rather than
	// stalling the broadcaster.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrConnClosed indicates a send on a closed connection.
	ErrConnClosed = errors.New("connection closed")
)

// IsAuthenticationError returns true if the error indicates a missing
// or rejected token.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken)
}
