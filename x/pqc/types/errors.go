package types

import errorsmod "cosmossdk.io/errors"

var (
	ErrIncompatibleKeyType       = errorsmod.Register(ModuleName, 1, "incompatible pqc key type")
	ErrUnsupportedAlgorithm      = errorsmod.Register(ModuleName, 2, "unsupported pqc algorithm")
	ErrMissingKeyMaterial        = errorsmod.Register(ModuleName, 3, "missing pqc key material")
	ErrInvalidKeyMaterial        = errorsmod.Register(ModuleName, 4, "invalid pqc key material")
	ErrNotSupportedForVerifyOnly = errorsmod.Register(ModuleName, 5, "signing not supported by verify-only provider")
	ErrInvalidRange              = errorsmod.Register(ModuleName, 6, "invalid buffer range")
	ErrKeyNotFound               = errorsmod.Register(ModuleName, 7, "pqc key not found")
	ErrInvalidParams             = errorsmod.Register(ModuleName, 8, "invalid pqc params")
)
