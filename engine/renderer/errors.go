package renderer

import "fmt"

// ProgramLinkError reports a pipeline whose GPU object could not be created from its shaders.
type ProgramLinkError struct {
	// Key is the pipeline key.
	Key string

	// Err is the underlying validation or creation failure.
	Err error
}

func (e *ProgramLinkError) Error() string {
	return fmt.Sprintf("pipeline %q: link failed: %v", e.Key, e.Err)
}

func (e *ProgramLinkError) Unwrap() error {
	return e.Err
}

// ResourceAllocationError reports a GPU object or device capability that could not be obtained.
type ResourceAllocationError struct {
	// Resource names what was being allocated (e.g. "device", "output storage").
	Resource string

	// Err is the underlying failure.
	Err error
}

func (e *ResourceAllocationError) Error() string {
	return fmt.Sprintf("allocate %s: %v", e.Resource, e.Err)
}

func (e *ResourceAllocationError) Unwrap() error {
	return e.Err
}
