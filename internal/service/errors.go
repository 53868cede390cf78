package service

import (
	"errors"

	"github.com/nachitzaid/food4u/internal/repository"
)

var (
	ErrMenuItemNotFound = repository.ErrMenuItemNotFound
	ErrDealNotFound     = repository.ErrDealNotFound
	ErrOrderNotFound    = repository.ErrOrderNotFound

	// ErrInvalidSelection covers unavailable dishes and unknown sizes,
	// ingredients or extras.
	ErrInvalidSelection  = errors.New("invalid menu selection")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidImage      = errors.New("upload is not a supported image")

	// ErrInvalidDeal is returned for a deal whose window ends before it starts.
	ErrInvalidDeal = errors.New("invalid deal")

	ErrUploadsDisabled = errors.New("image uploads are not configured")
)
