// Package surface defines the embedded browser surface the shell drives.
//
// Implementations deliver every Observer call and every callback on the
// shell's UI loop. Methods never block on the page: navigation, reloads and
// script evaluation are requests whose outcome arrives later as events or
// callbacks. The navigation handler is the one exception and is consulted
// synchronously before each navigation, possibly from a protocol goroutine,
// so it must be safe for concurrent use.
package surface

import (
	"context"
	"errors"
	"net/url"

	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/session"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
)

var (
	// ErrStalePage is passed to an evaluation callback when the page the
	// script was queued against has been replaced
	ErrStalePage = errors.New("page changed before script completed")

	// ErrClosed is returned by operations on a closed surface
	ErrClosed = errors.New("surface is closed")
)

// Observer receives page events
type Observer interface {
	OnNavigationStarted(url string)
	OnProgress(progress float64)
	OnURLChanged(url string)
	OnAppearanceChanged(mode types.AppearanceMode)
	OnMessage(channel, payload string)
}

// NavigationHandler decides the fate of a navigation before it starts
type NavigationHandler func(policy.NavigationRequest) policy.Decision

// Surface is one embedded browser view
type Surface interface {
	session.Isolator

	Navigate(rawURL string) error
	Reload() error
	URL() string

	// Evaluate runs script in the current page. done may be nil for
	// fire-and-forget side effects.
	Evaluate(script string, done func(result any, err error))

	// InstallUserScript registers script to run at document start on every
	// subsequent page.
	InstallUserScript(ctx context.Context, script string) error

	// AddBinding exposes a page-global function that forwards its string
	// argument to OnMessage on the given channel.
	AddBinding(ctx context.Context, channel string) error

	Subscribe(o Observer) (unsubscribe func())

	// SetNavigationHandler installs h. A nil handler detaches the policy and
	// every navigation is allowed.
	SetNavigationHandler(h NavigationHandler)

	// Cookie reads one cookie for the application origin
	Cookie(name string, done func(value string, ok bool))
	SetCookie(name, value string) error

	Close() error
}

// Opener hands a URI to the platform's default handler
type Opener interface {
	Open(u *url.URL) error
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(u *url.URL) error

// Open calls f(u)
func (f OpenerFunc) Open(u *url.URL) error {
	return f(u)
}

// Observers fans events out to a set of subscribers. It is not safe for
// concurrent use and is meant to be touched only from the UI loop.
type Observers struct {
	next int
	subs map[int]Observer
	// order keeps delivery in subscription order
	order []int
}

// Add registers o and returns its removal function
func (s *Observers) Add(o Observer) func() {
	if s.subs == nil {
		s.subs = make(map[int]Observer)
	}
	key := s.next
	s.next++
	s.subs[key] = o
	s.order = append(s.order, key)
	return func() {
		delete(s.subs, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Len reports the number of subscribers
func (s *Observers) Len() int {
	return len(s.subs)
}

// Each calls fn for every subscriber in subscription order
func (s *Observers) Each(fn func(Observer)) {
	keys := append([]int(nil), s.order...)
	for _, k := range keys {
		if o, ok := s.subs[k]; ok {
			fn(o)
		}
	}
}
