package session

// SessionBuilderOption is a functional option for configuring a Session via NewSession.
type SessionBuilderOption func(*session)

// WithProgramBuilder is an option builder that enables program reloads.
//
// Parameters:
//   - b: the program builder
//
// Returns:
//   - SessionBuilderOption: a function that applies the option to a session
func WithProgramBuilder(b ProgramBuilder) SessionBuilderOption {
	return func(s *session) {
		s.programs = b
	}
}

// WithVerifier is an option builder that enables verification on the V key.
//
// Parameters:
//   - v: the verifier
//
// Returns:
//   - SessionBuilderOption: a function that applies the option to a session
func WithVerifier(v Verifier) SessionBuilderOption {
	return func(s *session) {
		s.verifier = v
	}
}

// WithInitialMode is an option builder that sets the starting display mode.
//
// Parameters:
//   - m: the initial mode
//
// Returns:
//   - SessionBuilderOption: a function that applies the option to a session
func WithInitialMode(m DisplayMode) SessionBuilderOption {
	return func(s *session) {
		s.mode = m
	}
}
