package domain

// ErrorCategory groups connection failures into stable classes.
type ErrorCategory string

const (
	CategoryNotInstalled ErrorCategory = "not_installed"
	CategoryWrongNetwork ErrorCategory = "wrong_network"
	CategoryGeneric      ErrorCategory = "generic"
)
