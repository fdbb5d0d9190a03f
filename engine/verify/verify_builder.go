package verify

// VerifierBuilderOption is a functional option for configuring a Verifier via NewVerifier.
type VerifierBuilderOption func(*verifier)

// WithWorkers is an option builder that sets the maximum number of decode workers.
// Values below 1 fall back to a single worker.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - VerifierBuilderOption: a function that applies the worker count option to a verifier
func WithWorkers(n int) VerifierBuilderOption {
	return func(v *verifier) {
		v.workers = max(n, 1)
	}
}
