package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmailAlreadyExists  = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRefreshTokenInvalid = errors.New("refresh token invalid or revoked")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserDisabled        = errors.New("user is disabled or banned")
	ErrVerificationInvalid = errors.New("verification token invalid or expired")
	ErrInvalidInput        = errors.New("invalid input")

	ErrCodeNotFound = errors.New("registration code not found")
	ErrCodeInvalid  = errors.New("registration code invalid")
	// ErrCodeUsed, ErrCodeExpired and ErrProgramMismatch all match ErrCodeInvalid.
	ErrCodeUsed        = fmt.Errorf("%w: already used", ErrCodeInvalid)
	ErrCodeExpired     = fmt.Errorf("%w: expired", ErrCodeInvalid)
	ErrProgramMismatch = fmt.Errorf("%w: code is for a different program", ErrCodeInvalid)
	ErrUnknownProgram  = errors.New("unknown program")
	ErrBatchTooLarge   = errors.New("batch size exceeds limit")

	ErrPaymentNotFound     = errors.New("payment not found")
	ErrGatewayNotFound     = errors.New("payment gateway not found")
	ErrCurrencyUnsupported = errors.New("currency not supported by gateway")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrInvalidPayload      = errors.New("invalid webhook payload")

	ErrNotificationNotFound = errors.New("notification not found")
)
