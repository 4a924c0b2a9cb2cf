package provider

// Purpose is the operation an adapter was built for.
type Purpose uint8

const (
	PurposeVerify Purpose = iota
	PurposeSign
)

func (p Purpose) String() string {
	switch p {
	case PurposeSign:
		return "sign"
	case PurposeVerify:
		return "verify"
	default:
		return "unknown"
	}
}
