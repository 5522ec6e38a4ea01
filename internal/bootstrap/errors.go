package bootstrap

import "errors"

var (
	ErrInvalidConfig  = errors.New("invalid features configuration")
	ErrReadOnlySource = errors.New("configured source does not accept writes")
)
