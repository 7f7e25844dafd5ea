package token

import "errors"

// Sentinel errors for every way a ledger operation can be rejected. All are
// reported synchronously with no partial state mutation; callers match with
// errors.Is.
var (
	ErrPaused                = errors.New("token operations are paused")
	ErrBlacklisted           = errors.New("account is blacklisted")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("allowance exceeded")
	ErrExceedsMaxSupply      = errors.New("mint amount would exceed maximum supply")
	ErrExceedsMintingCap     = errors.New("mint amount exceeds minting cap")
	ErrZeroAddress           = errors.New("zero address")
	ErrZeroAmount            = errors.New("amount must be > 0")
	ErrLengthMismatch        = errors.New("arrays length mismatch")
	ErrMaxSupplyDecrease     = errors.New("max supply cannot decrease")
	ErrMaxSupplyBelowIssued  = errors.New("max supply below total issued amount")
	ErrOverflow              = errors.New("amount causes arithmetic overflow")
	ErrSaleModuleOnly        = errors.New("caller is not the bound sale module")
)
