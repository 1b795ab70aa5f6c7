package errprocess

import (
	"errors"
	"fmt"

	"impact_chat/pkg/logger"

	"go.uber.org/zap"
)

// Kind error category seen by the sink
type Kind string

const (
	// KindConnectivity transport connect failure or drop
	KindConnectivity Kind = "connectivity"
	// KindHistoryFetch one of the two history requests failed
	KindHistoryFetch Kind = "history_fetch"
	// KindCommand REST command rejected by the server
	KindCommand Kind = "command"
	// KindValidation empty or malformed local input, never sent
	KindValidation Kind = "validation"
)

// Error typed client error
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Op
	if e.Status != 0 {
		msg += fmt.Sprintf(" (%d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Connectivity build a ConnectivityError
func Connectivity(op string, err error) error {
	logger.Log.Warn("connectivity error", zap.String("op", op), zap.Error(err))
	return &Error{Kind: KindConnectivity, Op: op, Err: err}
}

// HistoryFetch build a HistoryFetchError for roomID
func HistoryFetch(roomID string, err error) error {
	logger.Log.Warn("history fetch error", zap.String("room_id", roomID), zap.Error(err))
	return &Error{Kind: KindHistoryFetch, Op: "history " + roomID, Err: err}
}

// Command build a CommandError from a server reply
func Command(op string, status int, detail string) error {
	logger.Log.Warn("command error", zap.String("op", op), zap.Int("status", status), zap.String("detail", detail))
	return &Error{Kind: KindCommand, Op: op, Status: status, Detail: detail}
}

// CommandFailed build a CommandError for a command that failed before any reply
func CommandFailed(op string, err error) error {
	logger.Log.Warn("command error", zap.String("op", op), zap.Error(err))
	return &Error{Kind: KindCommand, Op: op, Err: err}
}

// Validation build a ValidationError
func Validation(op, detail string) error {
	logger.Log.Debug("validation error", zap.String("op", op), zap.String("detail", detail))
	return &Error{Kind: KindValidation, Op: op, Detail: detail}
}

// KindOf returns the Kind of err if it carries one
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind check err is of kind k
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// DetailOf server detail or the error text
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
