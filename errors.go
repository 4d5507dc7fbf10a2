package main

import "errors"

var (
	// ErrMalformedMessage is returned by Decode for payloads that are not a
	// valid encoding of a known message kind.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrBroadcastFailed wraps transport send errors.
	ErrBroadcastFailed = errors.New("broadcast failed")

	// ErrInputClosed reports that the input source reached end of input.
	// It is a termination signal, not a failure.
	ErrInputClosed = errors.New("input closed")

	// ErrInputIO wraps read faults on the input source.
	ErrInputIO = errors.New("input read failed")

	// ErrReceiveFailed wraps terminal errors on the topic event stream.
	ErrReceiveFailed = errors.New("receive failed")

	// ErrTopicClosed is returned by Receiver.Next once the subscription is closed.
	ErrTopicClosed = errors.New("topic closed")

	// ErrSessionStopped is returned when Run is called on a session that
	// already ran.
	ErrSessionStopped = errors.New("session stopped")
)
