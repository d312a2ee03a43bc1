package present

import (
	"fmt"
	"sync"
)

var registry = struct {
	mu       sync.Mutex
	backends map[Kind]Backend
}{
	backends: map[Kind]Backend{
		KindNone: Noop(),
	},
}

// Register makes b available to Lookup and the default selector.
// Backend packages call it from init. Registering a kind twice panics.
func Register(b Backend) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	k := b.Kind()
	if _, dup := registry.backends[k]; dup {
		panic(fmt.Sprintf("present: backend %v registered twice", k))
	}

	registry.backends[k] = b
}

// Lookup returns the registered backend of kind k.
func Lookup(k Kind) (Backend, bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	b, ok := registry.backends[k]
	return b, ok
}

// Status describes a backend kind in this binary.
type Status struct {
	Kind       Kind
	Registered bool
	Supported  bool
}

// Registered reports every kind in preference order, followed by the
// no-op backend, with whether it is compiled in and supported here.
func Registered() []Status {
	var ss []Status

	for _, k := range append(Order(), KindNone) {
		s := Status{Kind: k}
		if b, ok := Lookup(k); ok {
			s.Registered = true
			s.Supported = b.Supported()
		}

		ss = append(ss, s)
	}

	return ss
}
