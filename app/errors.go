package app

import (
	errorsmod "cosmossdk.io/errors"
)

const (
	errInvalidConfig uint32 = 1
)

var (
	ErrInvalidConfig = errorsmod.Register(Name, errInvalidConfig, "invalid pqsig configuration")
)
