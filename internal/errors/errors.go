package errors

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrInvalidInput is returned when the provided input is invalid.
// Unknown chip type or colour order names map to this kind and are never retried.
var ErrInvalidInput = errors.New("invalid input")

// ErrDeviceUnavailable is returned when a device can't be reached or is not responding
var ErrDeviceUnavailable = errors.New("device unavailable")

// ErrConnect is returned when the TCP connection to the controller can't be established
var ErrConnect = errors.New("connect failed")

// ErrIO is returned when a write or read fails on an established connection
var ErrIO = errors.New("i/o failure")

// ErrReadTimeout is returned when a response doesn't arrive within the read timeout
var ErrReadTimeout = errors.New("read timeout")

// ErrRetriesExhausted is returned once every attempt of a send has failed
var ErrRetriesExhausted = errors.New("retries exhausted")

// ErrDecode is returned when a status payload is malformed
var ErrDecode = errors.New("decode failed")

// ErrClosed is returned when a request is submitted to a closed client
var ErrClosed = errors.New("client closed")

// ErrUnauthorized is returned when an API key is missing, unknown, disabled or expired
var ErrUnauthorized = errors.New("unauthorized")

// ErrInternal is returned for unexpected internal errors
var ErrInternal = errors.New("internal error")

// LogErrorAndReturn logs an error with structured context and returns it
func LogErrorAndReturn(logger *slog.Logger, err error, message string, args ...any) error {
	if err == nil {
		return nil
	}

	logger.Error(message, append([]any{"error", err}, args...)...)
	return err
}

// WrapErrorf wraps an error with additional context using fmt.Errorf
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// IsInvalidInput returns true if the error is or wraps ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsDeviceUnavailable returns true if the error means the controller could not
// be talked to: an explicit ErrDeviceUnavailable, or an exhausted retry loop.
func IsDeviceUnavailable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable) || errors.Is(err, ErrRetriesExhausted)
}

// IsTransient returns true for the network-layer kinds the retry policy absorbs
func IsTransient(err error) bool {
	return errors.Is(err, ErrConnect) || errors.Is(err, ErrIO) || errors.Is(err, ErrReadTimeout)
}

// IsDecode returns true if the error is or wraps ErrDecode
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}

// InvalidInputf returns a formatted ErrInvalidInput error
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// DeviceUnavailablef returns a formatted ErrDeviceUnavailable error
func DeviceUnavailablef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDeviceUnavailable)...)
}

// Connectf returns a formatted ErrConnect error
func Connectf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConnect)...)
}

// IOf returns a formatted ErrIO error
func IOf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrIO)...)
}

// ReadTimeoutf returns a formatted ErrReadTimeout error
func ReadTimeoutf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrReadTimeout)...)
}

// Decodef returns a formatted ErrDecode error
func Decodef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDecode)...)
}

// Exhausted wraps the last attempt's error so that both ErrRetriesExhausted
// and the underlying kind match with errors.Is.
func Exhausted(attempts int, last error) error {
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, last)
}

// Unauthorizedf returns a formatted ErrUnauthorized error
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnauthorized)...)
}

// IsUnauthorized returns true if the error is or wraps ErrUnauthorized
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Internalf returns a formatted ErrInternal error
func Internalf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInternal)...)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
