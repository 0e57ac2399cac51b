package service

import "errors"

var (
	ErrInvalidAmount      = errors.New("invalid order amount")
	ErrSignatureInvalid   = errors.New("webhook signature invalid")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyPaid   = errors.New("order already paid")
)
