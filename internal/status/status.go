package status

import "errors"

var (
	ErrBanned            = errors.New("match: account is banned")
	ErrInsufficientCoins = errors.New("coins: not enough coins")
	ErrUserNotFound      = errors.New("user: user not found")
	ErrAlreadyInCall     = errors.New("match: already in an active call")
	ErrNoVideosAvailable = errors.New("video: no fake videos available")
	ErrMatchNotFound     = errors.New("match: match not found")
	ErrPackageNotFound   = errors.New("checkout: coin package not found")
	ErrCheckoutNotFound  = errors.New("checkout: checkout session not found")
	ErrInvalidSecret     = errors.New("user: invalid client secret")
)
