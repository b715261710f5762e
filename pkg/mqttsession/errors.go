package mqttsession

import "errors"

var (
	// ErrConnectTimeout indicates the broker did not acknowledge the
	// connection within the configured timeout.
	ErrConnectTimeout = errors.New("mqtt connect timeout")

	// ErrConnectFailed wraps transport or authentication failures.
	ErrConnectFailed = errors.New("mqtt connect failed")

	// ErrConnectInProgress indicates a connect attempt is already running.
	ErrConnectInProgress = errors.New("mqtt connect already in progress")

	// ErrRetriesExhausted is the terminal failure after the bounded
	// initial-connect retry loop gives up.
	ErrRetriesExhausted = errors.New("mqtt connect retries exhausted")

	// ErrRetryAborted indicates a disconnect was requested while the
	// retry loop was backing off.
	ErrRetryAborted = errors.New("mqtt connect retry aborted")

	errSubscribeFailed = errors.New("mqtt subscribe failed")
)
