package licensing

import "errors"

var (
	// ErrDuplicateKey is returned by the store when a generated key collides
	// with an existing one. Key issuance re-rolls on it.
	ErrDuplicateKey = errors.New("license key already exists")

	ErrLicenseNotFound    = errors.New("license not found")
	ErrLicenseInactive    = errors.New("license is not active")
	ErrActivationLimit    = errors.New("activation limit reached")
	ErrActivationNotFound = errors.New("activation not found")
	ErrKeyGeneration      = errors.New("could not generate a unique license key")

	// ErrLimitBelowActivations rejects lowering max_activations under the
	// number of devices currently holding a slot.
	ErrLimitBelowActivations = errors.New("max_activations is below current activations")
)
