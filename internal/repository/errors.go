package repository

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrNFTNotFound           = errors.New("nft not found")
	ErrSellingConfigNotFound = errors.New("selling config not found")
	ErrOfferNotFound         = errors.New("offer not found")
	ErrTransactionNotFound   = errors.New("transaction not found")

	// ErrInvalidTransition rejects a status change the state machine forbids.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrStatusConflict means the row was no longer in the expected status.
	ErrStatusConflict = errors.New("status changed concurrently")
)
