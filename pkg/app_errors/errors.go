package apperrors

import "errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrZoneNotFound        = errors.New("zone not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternalServerError = errors.New("internal server error")
	ErrSlugTaken           = errors.New("slug already in use")

	// sales phases
	ErrInvalidPhaseWindow = errors.New("sales phase ends before it starts")
	ErrInvalidPhaseStatus = errors.New("invalid sales phase manual status")
	ErrNoActivePhase      = errors.New("no sales phase is active")

	// purchase validation
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrExceedsMaxPerTransaction = errors.New("exceeds max tickets per transaction")
	ErrInvalidQuantity          = errors.New("quantity must be greater than zero")
	ErrInvalidInstallments      = errors.New("invalid installment count")
	ErrInstallmentsNotAllowed   = errors.New("installment payments are not allowed for this event")
	ErrPaymentMethodNotAllowed  = errors.New("payment method not allowed for this event")
	ErrTotalMismatch            = errors.New("total amount does not match current prices")
	ErrCurrencyMismatch         = errors.New("currency does not match event currency")
	ErrZoneNotOnSale            = errors.New("zone inventory is not on sale")
	ErrInvalidOrderStatus       = errors.New("invalid order status")
	ErrDuplicateOrderReference  = errors.New("order reference already used")

	// auth
	ErrUnauthorized = errors.New("unauthorized")
)

// IsValidationError reports whether err comes from rejecting client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPhaseWindow) ||
		errors.Is(err, ErrInvalidPhaseStatus) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidInstallments) ||
		errors.Is(err, ErrInstallmentsNotAllowed) ||
		errors.Is(err, ErrPaymentMethodNotAllowed) ||
		errors.Is(err, ErrTotalMismatch) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrExceedsMaxPerTransaction) ||
		errors.Is(err, ErrZoneNotFound)
}

// IsConflictError reports whether err is caused by current inventory or order state.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNoActivePhase) ||
		errors.Is(err, ErrZoneNotOnSale) ||
		errors.Is(err, ErrInvalidOrderStatus) ||
		errors.Is(err, ErrSlugTaken) ||
		errors.Is(err, ErrDuplicateOrderReference)
}
