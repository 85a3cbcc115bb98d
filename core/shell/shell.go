// Package shell is the responsive dashboard frame: which navigation a role sees
// and whether its sidebar is open for a given viewport.
package shell

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// DefaultBreakpoint is the viewport width (px) from which the layout is desktop.
const DefaultBreakpoint = 1024

type State uint8

const (
	DesktopOpen State = iota
	DesktopClosed
	MobileOpen
	MobileClosed
)

var States = []State{DesktopOpen, DesktopClosed, MobileOpen, MobileClosed}

var ErrInvalidState = errors.New("invalid layout state")

func (s State) String() string {
	switch s {
	case DesktopOpen:
		return "desktop_open"
	case DesktopClosed:
		return "desktop_closed"
	case MobileOpen:
		return "mobile_open"
	case MobileClosed:
		return "mobile_closed"
	default:
		panic(fmt.Sprintf("shell: unhandled state %d", uint8(s)))
	}
}

func ParseState(s string) (State, error) {
	for _, st := range States {
		if st.String() == s {
			return st, nil
		}
	}
	return DesktopOpen, errors.Wrapf(ErrInvalidState, "%q", s)
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s State) IsMobile() bool { return s == MobileOpen || s == MobileClosed }

func (s State) SidebarOpen() bool { return s == DesktopOpen || s == MobileOpen }

// Initial is the state of a freshly mounted shell: open on desktop, closed on mobile.
func Initial(width, breakpoint int) State {
	if width >= breakpoint {
		return DesktopOpen
	}
	return MobileClosed
}

// Event is an input of the layout state machine.
type Event uint8

const (
	EventResize Event = iota
	EventToggle
	EventOverlayClick
	EventNavigate
)

var ErrInvalidEvent = errors.New("invalid layout event")

func (e Event) String() string {
	switch e {
	case EventResize:
		return "resize"
	case EventToggle:
		return "toggle"
	case EventOverlayClick:
		return "overlay_click"
	case EventNavigate:
		return "navigate"
	default:
		panic(fmt.Sprintf("shell: unhandled event %d", uint8(e)))
	}
}

func (e *Event) UnmarshalText(text []byte) error {
	for _, ev := range []Event{EventResize, EventToggle, EventOverlayClick, EventNavigate} {
		if ev.String() == string(text) {
			*e = ev
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidEvent, "%q", text)
}

func (e Event) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// Next is the pure transition function. width is only read for EventResize.
func Next(s State, ev Event, width, breakpoint int) State {
	switch ev {
	case EventResize:
		desktop := width >= breakpoint
		switch {
		case desktop && s.IsMobile():
			return DesktopOpen
		case !desktop && !s.IsMobile():
			return MobileClosed
		default:
			return s
		}
	case EventToggle:
		switch s {
		case DesktopOpen:
			return DesktopClosed
		case DesktopClosed:
			return DesktopOpen
		case MobileOpen:
			return MobileClosed
		case MobileClosed:
			return MobileOpen
		}
	case EventOverlayClick, EventNavigate:
		if s == MobileOpen {
			return MobileClosed
		}
		return s
	}
	panic(fmt.Sprintf("shell: unhandled transition %s on %s", ev, s))
}

// ScrollLock suppresses background page scroll while the mobile sidebar is open.
type ScrollLock interface {
	Lock()
	Unlock()
}

// NopScrollLock is used where there is no page to lock (server-side evaluation).
type NopScrollLock struct{}

func (NopScrollLock) Lock()   {}
func (NopScrollLock) Unlock() {}

// Layout is a mounted shell. It holds the scroll lock exactly while in MobileOpen
// and releases it on every exit, Close included. Safe for concurrent use.
type Layout struct {
	mu         sync.Mutex
	state      State
	breakpoint int
	lock       ScrollLock
	locked     bool
	closed     bool
}

// New mounts a layout for the current viewport width.
func New(width, breakpoint int, lock ScrollLock) *Layout {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	if lock == nil {
		lock = NopScrollLock{}
	}
	l := &Layout{state: Initial(width, breakpoint), breakpoint: breakpoint, lock: lock}
	l.syncLock()
	return l
}

func (l *Layout) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Resize reacts to a viewport change; crossing the breakpoint resets the sidebar to the viewport default.
func (l *Layout) Resize(width int) State { return l.apply(EventResize, width) }

func (l *Layout) Toggle() State { return l.apply(EventToggle, 0) }

func (l *Layout) OverlayClick() State { return l.apply(EventOverlayClick, 0) }

// Navigate closes the mobile sidebar; the route itself does not matter.
func (l *Layout) Navigate(_ string) State { return l.apply(EventNavigate, 0) }

// Close unmounts the layout, releasing the scroll lock if held. Later events are ignored.
func (l *Layout) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.release()
}

func (l *Layout) apply(ev Event, width int) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return l.state
	}
	l.state = Next(l.state, ev, width, l.breakpoint)
	l.syncLock()
	return l.state
}

// syncLock must be called with mu held.
func (l *Layout) syncLock() {
	if l.state == MobileOpen {
		if !l.locked {
			l.lock.Lock()
			l.locked = true
		}
		return
	}
	l.release()
}

func (l *Layout) release() {
	if l.locked {
		l.lock.Unlock()
		l.locked = false
	}
}
