package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/verify"
)

// DisplayMode selects which texture the display quad samples.
type DisplayMode int

const (
	// ShowInput displays the uncompressed input texture.
	ShowInput DisplayMode = iota

	// ShowOutput displays the BC4 texture published by the compressor.
	ShowOutput
)

// String returns "input" or "output".
func (m DisplayMode) String() string {
	switch m {
	case ShowInput:
		return "input"
	case ShowOutput:
		return "output"
	}
	return fmt.Sprintf("DisplayMode(%d)", int(m))
}

// ErrNoVerifier is returned by Verify when the session was built without a verifier.
var ErrNoVerifier = errors.New("no verifier configured")

// Compressor records the per-frame compression pass.
type Compressor interface {
	CompressAndPublish() error
}

// Displayer records the full-screen quad for either texture.
type Displayer interface {
	DrawInput() error
	DrawOutput() error
}

// Verifier checks the published output against the reference codec.
type Verifier interface {
	Verify() (verify.Report, error)
}

// ProgramBuilder rebuilds the GPU programs and swaps them in for the active ones.
type ProgramBuilder interface {
	// ReloadPrograms compiles, checks and creates new programs, then swaps them in and
	// releases the old ones. On error the active set is unchanged.
	//
	// Returns:
	//   - int: the number of programs swapped in
	//   - error: the first compile, binding or creation error
	ReloadPrograms() (int, error)
}

// session is the implementation of the Session interface.
type session struct {
	mu sync.Mutex

	mode DisplayMode

	compressor Compressor
	display    Displayer
	verifier   Verifier
	programs   ProgramBuilder

	reloads int
}

// Session owns the display mode and routes key input to mode changes, program reloads and
// verification. All calls are expected from the render goroutine.
type Session interface {
	// Mode returns the current display mode.
	Mode() DisplayMode

	// Toggle switches between ShowInput and ShowOutput and logs the new mode.
	// It is the only way the mode changes.
	//
	// Returns:
	//   - DisplayMode: the new mode
	Toggle() DisplayMode

	// OnKey handles one key transition. Only presses act: M toggles the mode,
	// R reloads the programs and V runs the verifier.
	//
	// Parameters:
	//   - key: the virtual key code
	//   - action: the key transition
	OnKey(key uint32, action common.KeyAction)

	// ReloadPrograms builds new programs, and swaps them in only if every one of them built
	// and still fits the bind groups created at startup. The old programs stay active on
	// failure and are released after a successful swap.
	//
	// Returns:
	//   - error: the build error, in which case nothing changed
	ReloadPrograms() error

	// Verify runs the verifier once.
	//
	// Returns:
	//   - verify.Report: the comparison statistics
	//   - error: ErrNoVerifier or the verifier's error
	Verify() (verify.Report, error)

	// PrepareCompute records the compression pass into the open compute frame.
	PrepareCompute() error

	// DrawCalls records the display quad for the current mode into the open render frame.
	DrawCalls() error

	// Reloads returns the number of successful program reloads.
	Reloads() int
}

var _ Session = &session{}

// NewSession creates a Session in ShowOutput mode.
//
// Parameters:
//   - c: the compressor run each frame
//   - d: the display drawn each frame
//   - options: a variadic list of SessionBuilderOption functions
//
// Returns:
//   - Session: the session
func NewSession(c Compressor, d Displayer, options ...SessionBuilderOption) Session {
	s := &session{
		mode:       ShowOutput,
		compressor: c,
		display:    d,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *session) Mode() DisplayMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *session) Toggle() DisplayMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ShowInput {
		s.mode = ShowOutput
	} else {
		s.mode = ShowInput
	}
	common.Logger().Info("show " + s.mode.String())
	return s.mode
}

func (s *session) OnKey(key uint32, action common.KeyAction) {
	if action != common.KeyPress {
		return
	}
	switch key {
	case common.KeyM:
		s.Toggle()
	case common.KeyR:
		if err := s.ReloadPrograms(); err != nil {
			common.Logger().Warn("program reload failed, keeping previous programs", "error", err)
		}
	case common.KeyV:
		if _, err := s.Verify(); err != nil {
			common.Logger().Warn("verification failed", "error", err)
		}
	}
}

func (s *session) ReloadPrograms() error {
	if s.programs == nil {
		return errors.New("no program builder configured")
	}

	count, err := s.programs.ReloadPrograms()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.reloads++
	n := s.reloads
	s.mu.Unlock()

	common.Logger().Info("programs reloaded", "count", count, "reload", n)
	return nil
}

func (s *session) Verify() (verify.Report, error) {
	if s.verifier == nil {
		return verify.Report{}, ErrNoVerifier
	}
	return s.verifier.Verify()
}

func (s *session) PrepareCompute() error {
	return s.compressor.CompressAndPublish()
}

func (s *session) DrawCalls() error {
	if s.Mode() == ShowInput {
		return s.display.DrawInput()
	}
	return s.display.DrawOutput()
}

func (s *session) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}
