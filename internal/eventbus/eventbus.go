// Package eventbus is an in-process signal bus. Events carry no payload;
// waiters observe that an event fired, not how often.
package eventbus

import (
	"context"
	"sync"

	"token-registry/internal/domain"
)

// Event names.
const (
	VaultsUpdated = "vaults/updated"
	BoostsUpdated = "boosts/updated"
	TokensUpdated = "tokens/updated"
)

// TokensReady names the event emitted after chain's table is published.
func TokensReady(chain domain.ChainID) string {
	return "tokens/" + string(chain) + "/ready"
}

type event struct {
	count uint64
	// next is closed on the following Emit and then replaced.
	next chan struct{}
}

// Bus is safe for concurrent use. The zero value is not usable; use New.
type Bus struct {
	mu     sync.Mutex
	events map[string]*event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{events: map[string]*event{}}
}

func (b *Bus) event(name string) *event {
	e, ok := b.events[name]
	if !ok {
		e = &event{next: make(chan struct{})}
		b.events[name] = e
	}
	return e
}

// Emit fires name, releasing every current waiter.
func (b *Bus) Emit(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.event(name)
	e.count++
	close(e.next)
	e.next = make(chan struct{})
}

// Count returns how many times name has fired.
func (b *Bus) Count(name string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.event(name).count
}

// WaitForFirst returns once name has fired at least once, immediately if
// it already has.
func (b *Bus) WaitForFirst(ctx context.Context, name string) error {
	b.mu.Lock()
	e := b.event(name)
	if e.count > 0 {
		b.mu.Unlock()
		return nil
	}
	ch := e.next
	b.mu.Unlock()

	return wait(ctx, ch)
}

// WaitForNext returns on the next emission of name, ignoring past ones.
func (b *Bus) WaitForNext(ctx context.Context, name string) error {
	b.mu.Lock()
	ch := b.event(name).next
	b.mu.Unlock()

	return wait(ctx, ch)
}

// WaitForAny returns the first of names to fire after the call.
func (b *Bus) WaitForAny(ctx context.Context, names ...string) (string, error) {
	b.mu.Lock()
	chans := make([]chan struct{}, len(names))
	for i, name := range names {
		chans[i] = b.event(name).next
	}
	b.mu.Unlock()

	fired := make(chan string, len(names))
	stop := make(chan struct{})
	defer close(stop)

	for i, ch := range chans {
		go func() {
			select {
			case <-ch:
				fired <- names[i]
			case <-stop:
			}
		}()
	}

	select {
	case name := <-fired:
		return name, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
