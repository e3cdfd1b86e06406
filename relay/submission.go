package relay

import (
	"context"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

type SubmissionState int

const (
	SubmissionPending SubmissionState = iota
	SubmissionSubmitted
	SubmissionConfirmed
	SubmissionFailed
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionPending:
		return "pending"
	case SubmissionSubmitted:
		return "submitted"
	case SubmissionConfirmed:
		return "confirmed"
	case SubmissionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen from s
func (s SubmissionState) Terminal() bool {
	return s == SubmissionConfirmed || s == SubmissionFailed
}

// Event is one lifecycle transition of a Submission
type Event struct {
	State SubmissionState

	// Hash is set from Submitted onwards
	Hash string
	// Receipt is set on Confirmed
	Receipt *Receipt
	// Refreshed is the contract state read right after confirmation,
	// RefreshErr is set instead when that read failed
	Refreshed  *State
	RefreshErr error
	// Err is set on Failed, it carries the underlying reason unchanged
	Err error
}

// Submission tracks a single relayed meta-transaction from Pending to
// Confirmed or Failed. It yields at most two events, Submitted then a
// terminal one, or a single Failed.
type Submission struct {
	ID string

	mu       sync.RWMutex
	state    SubmissionState
	hash     string
	receipt  *Receipt
	err      error
	gasLimit uint64
	gasPrice *big.Int

	events chan Event
	done   chan struct{}
}

func newSubmission() *Submission {
	return &Submission{
		ID:     uuid.New().String(),
		state:  SubmissionPending,
		events: make(chan Event, 2),
		done:   make(chan struct{}),
	}
}

// Events returns the lifecycle events channel, closed once the submission is
// terminal. The channel is buffered so nobody is required to read it.
func (s *Submission) Events() <-chan Event {
	return s.events
}

// Done is closed once the submission reached a terminal state
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission is terminal or ctx is done. It returns the
// failure reason of a Failed submission.
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Submission) State() SubmissionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Submission) Hash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hash
}

func (s *Submission) Receipt() *Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.receipt
}

func (s *Submission) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Gas returns the gas limit and gas price the relayer used, zero values until
// the submission has been sent
func (s *Submission) Gas() (uint64, *big.Int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gasPrice == nil {
		return s.gasLimit, nil
	}
	return s.gasLimit, new(big.Int).Set(s.gasPrice)
}

func (s *Submission) setGas(gasLimit uint64, gasPrice *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gasLimit = gasLimit
	s.gasPrice = gasPrice
}

func (s *Submission) submitted(hash string) {
	s.mu.Lock()
	if s.state != SubmissionPending {
		s.mu.Unlock()
		return
	}
	s.state = SubmissionSubmitted
	s.hash = hash
	s.mu.Unlock()

	s.events <- Event{State: SubmissionSubmitted, Hash: hash}
}

func (s *Submission) confirmed(receipt *Receipt, refreshed *State, refreshErr error) {
	s.mu.Lock()
	if s.state != SubmissionSubmitted {
		s.mu.Unlock()
		return
	}
	s.state = SubmissionConfirmed
	s.receipt = receipt
	hash := s.hash
	s.mu.Unlock()

	s.events <- Event{
		State:      SubmissionConfirmed,
		Hash:       hash,
		Receipt:    receipt,
		Refreshed:  refreshed,
		RefreshErr: refreshErr,
	}
	s.finish()
}

func (s *Submission) failed(err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = SubmissionFailed
	s.err = err
	hash := s.hash
	s.mu.Unlock()

	s.events <- Event{State: SubmissionFailed, Hash: hash, Err: err}
	s.finish()
}

func (s *Submission) finish() {
	close(s.events)
	close(s.done)
}
