// Package errors holds the sentinel errors shared by every layer and their
// translation to wire codes (websocket acks) and gRPC statuses.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Authentication
	ErrMissingToken = fmt.Errorf("authentication token is missing")
	ErrInvalidToken = fmt.Errorf("authentication token is invalid")
	ErrTokenExpired = fmt.Errorf("token expired")
	ErrAuthRequired = fmt.Errorf("authentication required")

	// Authorization
	ErrForbiddenRoomAccess = fmt.Errorf("user is not a member of this room")
	ErrForbiddenDelete     = fmt.Errorf("only the room creator can delete the room")

	// Validation
	ErrInvalidRoomID  = fmt.Errorf("invalid room id")
	ErrInvalidPayload = fmt.Errorf("invalid payload")
	ErrEmptyMessage   = fmt.Errorf("message is empty after sanitization")

	// Not found
	ErrRoomNotFound         = fmt.Errorf("room not found")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrNotificationNotFound = fmt.Errorf("notification not found")

	// Conflict
	ErrUserAlreadyMember = fmt.Errorf("user is already a member of this room")
	ErrUserAlreadyExists = fmt.Errorf("user already exists")
)

// Code is the machine readable error code carried by acks and error events.
type Code string

const (
	CodeAuthMissingToken  Code = "AUTH_MISSING_TOKEN"
	CodeAuthInvalidToken  Code = "AUTH_INVALID_TOKEN"
	CodeAuthExpired       Code = "AUTH_EXPIRED"
	CodeAuthRequired      Code = "AUTH_REQUIRED"
	CodeInvalidRoomID     Code = "INVALID_ROOM_ID"
	CodeInvalidPayload    Code = "INVALID_PAYLOAD"
	CodeForbiddenRoom     Code = "FORBIDDEN_ROOM_ACCESS"
	CodeForbiddenDelete   Code = "FORBIDDEN_DELETE"
	CodeEmptyMessage      Code = "EMPTY_MESSAGE"
	CodeRoomNotFound      Code = "ROOM_NOT_FOUND"
	CodeMessageNotFound   Code = "MESSAGE_NOT_FOUND"
	CodeUserNotFound      Code = "USER_NOT_FOUND"
	CodeNotifNotFound     Code = "NOTIF_NOT_FOUND"
	CodeUserAlreadyMember Code = "USER_ALREADY_MEMBER"
	CodeUserAlreadyExists Code = "USER_ALREADY_EXISTS"
	CodeInternal          Code = "INTERNAL_ERROR"

	internalMessage = "Internal server error"
)

type mapping struct {
	err     error
	code    Code
	grpc    codes.Code
	message string
}

var mappings = []mapping{
	{ErrMissingToken, CodeAuthMissingToken, codes.Unauthenticated, "Authentication token missing"},
	{ErrInvalidToken, CodeAuthInvalidToken, codes.Unauthenticated, "Invalid or expired token"},
	{ErrTokenExpired, CodeAuthExpired, codes.Unauthenticated, "Token expired"},
	{ErrAuthRequired, CodeAuthRequired, codes.Unauthenticated, "Authentication required"},
	{ErrForbiddenRoomAccess, CodeForbiddenRoom, codes.PermissionDenied, "You are not a member of this room"},
	{ErrForbiddenDelete, CodeForbiddenDelete, codes.PermissionDenied, "Only the room creator can delete this room"},
	{ErrInvalidRoomID, CodeInvalidRoomID, codes.InvalidArgument, "Invalid room id"},
	{ErrInvalidPayload, CodeInvalidPayload, codes.InvalidArgument, "Invalid payload"},
	{ErrEmptyMessage, CodeEmptyMessage, codes.InvalidArgument, "Message cannot be empty"},
	{ErrRoomNotFound, CodeRoomNotFound, codes.NotFound, "Room not found"},
	{ErrMessageNotFound, CodeMessageNotFound, codes.NotFound, "Message not found"},
	{ErrUserNotFound, CodeUserNotFound, codes.NotFound, "User not found"},
	{ErrNotificationNotFound, CodeNotifNotFound, codes.NotFound, "Notification not found"},
	{ErrUserAlreadyMember, CodeUserAlreadyMember, codes.AlreadyExists, "User is already a member of this room"},
	{ErrUserAlreadyExists, CodeUserAlreadyExists, codes.AlreadyExists, "User already exists"},
}

func lookup(err error) (mapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return mapping{}, false
}

// ToCode returns the wire code and a client safe message for err.
// Anything outside the known taxonomy is reported as an internal error so
// storage details never leak to clients.
func ToCode(err error) (Code, string) {
	if m, ok := lookup(err); ok {
		return m.code, m.message
	}
	return CodeInternal, internalMessage
}

// IsInternal reports whether err falls outside the known taxonomy.
func IsInternal(err error) bool {
	_, ok := lookup(err)
	return !ok
}

// MapToGRPCError converts a domain error to a gRPC status error.
// The wire code travels as the status message prefix: "CODE: message".
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && IsInternal(err) {
		// already a status, produced by an interceptor
		return err
	}
	if m, ok := lookup(err); ok {
		return status.Error(m.grpc, string(m.code)+": "+m.message)
	}
	return status.Error(codes.Internal, string(CodeInternal)+": "+internalMessage)
}

// FromGRPCError recovers the wire code from a status produced by MapToGRPCError.
func FromGRPCError(err error) (Code, string) {
	st, ok := status.FromError(err)
	if !ok {
		return CodeInternal, internalMessage
	}
	code, message, found := strings.Cut(st.Message(), ": ")
	if !found {
		return CodeInternal, st.Message()
	}
	return Code(code), message
}

// Is and As are re-exported so callers importing this package under the
// name "errors" keep the standard helpers at hand.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
