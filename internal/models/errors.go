package models

import "errors"

var (
	ErrMarketNotOpen       = errors.New("market not open")
	ErrPriceTooLow         = errors.New("price too low")
	ErrTooEarly            = errors.New("too early")
	ErrAlreadyResolved     = errors.New("already resolved")
	ErrZeroAmount          = errors.New("amount must be positive")
	ErrAlreadyPaid         = errors.New("already paid")
	ErrAlreadyWithdrawn    = errors.New("already withdrawn")
	ErrAlreadyClaimed      = errors.New("already claimed")
	ErrNotAWinner          = errors.New("not a winner")
	ErrNotLongestOwner     = errors.New("not the longest owner")
	ErrPaidNoRent          = errors.New("paid no rent")
	ErrNotWithdrawable     = errors.New("market not withdrawable")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientPot     = errors.New("insufficient pot balance")
)
