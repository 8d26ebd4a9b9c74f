package purify

// Options selects which rule families run.
type Options struct {
	// RemoveNonDeterministic replaces non-deterministic arithmetic
	// references with 0.
	RemoveNonDeterministic bool `yaml:"remove_non_deterministic" json:"remove_non_deterministic"`

	// EnforceIdempotency rewrites mkdir, rm and ln -s to idempotent forms.
	EnforceIdempotency bool `yaml:"enforce_idempotency" json:"enforce_idempotency"`
}

// DefaultOptions enables both rule families.
func DefaultOptions() Options {
	return Options{
		RemoveNonDeterministic: true,
		EnforceIdempotency:     true,
	}
}
