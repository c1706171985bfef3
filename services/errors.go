package services

import "errors"

var (
	// ErrCustomerNotFound means a feature table has no row for the customer.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrUnknownCustomer means a display name maps to no customer.
	ErrUnknownCustomer = errors.New("unknown customer")
	// ErrLabelIndexOutOfRange means the segment model and the segment table
	// disagree on the label space.
	ErrLabelIndexOutOfRange = errors.New("segment label index out of range")
	ErrExplanation          = errors.New("explanation failed")
	ErrInvalidSegmentCode   = errors.New("invalid segment code")
)
