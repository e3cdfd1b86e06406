package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streamingfast/eth-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLister returns one scripted answer per call, repeating the last one
type scriptedLister struct {
	mu      sync.Mutex
	answers [][]eth.Address
	errs    []error
	calls   int
}

func (l *scriptedLister) Accounts(ctx context.Context) ([]eth.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.calls
	if i >= len(l.answers) {
		i = len(l.answers) - 1
	}
	l.calls++

	if l.errs != nil && l.errs[i] != nil {
		return nil, l.errs[i]
	}
	return l.answers[i], nil
}

var (
	alice = eth.MustNewAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	bob   = eth.MustNewAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
)

func TestAccountWatcher_Changes(t *testing.T) {
	lister := &scriptedLister{
		answers: [][]eth.Address{{alice}, {alice}, {bob, alice}, nil, {alice}},
		errs:    []error{nil, errors.New("boom"), nil, nil, nil},
	}

	watcher := NewAccountWatcher(lister, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var changes []AccountChange
	for change := range watcher.Changes(ctx) {
		changes = append(changes, change)
		if len(changes) == 4 {
			break
		}
	}

	require.Len(t, changes, 4)
	assert.Equal(t, AccountChange{Previous: nil, Current: alice}, changes[0])
	assert.Equal(t, AccountChange{Previous: alice, Current: bob}, changes[1])
	assert.Equal(t, AccountChange{Previous: bob, Current: nil}, changes[2])
	assert.Equal(t, AccountChange{Previous: nil, Current: alice}, changes[3])
}

func TestAccountWatcher_Restartable(t *testing.T) {
	lister := &scriptedLister{answers: [][]eth.Address{{alice}}}
	watcher := NewAccountWatcher(lister, time.Millisecond)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		for change := range watcher.Changes(ctx) {
			assert.Equal(t, alice, change.Current)
			assert.Nil(t, change.Previous, "each iteration starts from a fresh read")
			break
		}
	}
}

func TestAccountWatcher_StopsOnContextDone(t *testing.T) {
	lister := &scriptedLister{answers: [][]eth.Address{{alice}}}
	watcher := NewAccountWatcher(lister, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := 0
	for range watcher.Changes(ctx) {
		count++
		cancel()
	}
	assert.Equal(t, 1, count)
}
