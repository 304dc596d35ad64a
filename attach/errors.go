package attach

import "errors"

var (
	// ErrActivationFailed means the attach listener could not be started:
	// the marker file was not creatable, the activation signal was not
	// deliverable, or the socket never appeared within the retry budget.
	ErrActivationFailed = errors.New("could not start attach mechanism")

	// ErrConnectFailed means the attach socket was unreachable or refused
	// the connection, typically because the target exited between
	// activation and connect. Not retried.
	ErrConnectFailed = errors.New("could not connect to attach socket")
)
