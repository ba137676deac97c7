package services

import (
	"errors"
	"strings"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrInvalidProductID  = errors.New("invalid product id")
	ErrProductNotFound   = errors.New("product not found")
	ErrItemNotInCart     = errors.New("item not in cart")
	ErrInvalidCartAction = errors.New("invalid cart action")
	ErrCartConflict      = errors.New("cart changed too often, try again")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrValidation        = errors.New("validation failed")
	ErrUpstreamAuth      = errors.New("auth provider error")
)

// ValidationError lists the form fields that were missing or invalid.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UserMessage turns an error into text that can be shown in a flash.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "Please sign in first"
	case errors.Is(err, ErrInvalidProductID), errors.Is(err, ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, ErrItemNotInCart):
		return "That product is not in your cart"
	case errors.Is(err, ErrInvalidCartAction):
		return "Unknown cart action"
	case errors.Is(err, ErrCartConflict):
		return "Your cart was updated elsewhere, please try again"
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty"
	case errors.Is(err, ErrValidation):
		var ve *ValidationError
		if errors.As(err, &ve) && len(ve.Fields) > 0 {
			return "Please check: " + strings.Join(ve.Fields, ", ")
		}
		return "Please check the form and try again"
	case errors.Is(err, ErrUpstreamAuth):
		return "Authentication failed, please try again"
	default:
		return "Something went wrong"
	}
}
