package providerfakes

import (
	"context"
	"sync"

	"github.com/rentdesk/sessiongate/identity"
)

var _ identity.ProviderSession = (*FakeProviderSession)(nil)

// FakeProviderSession is a test double for a live identity-provider session.
type FakeProviderSession struct {
	lock      sync.Mutex
	Assertion string
	Err       error
	Calls     int
}

func NewFakeProviderSession(assertion string) *FakeProviderSession {
	return &FakeProviderSession{Assertion: assertion}
}

func (f *FakeProviderSession) CurrentAssertion(_ context.Context) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	return f.Assertion, nil
}

// CallCount returns how many times an assertion was requested.
func (f *FakeProviderSession) CallCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.Calls
}
