package strategy

import (
	"fmt"
	"sort"
)

// registry maps strategy names to constructors. The set is closed: adding a
// paradigm means adding a type and an entry here.
var registry = map[string]func() Strategy{
	"EFT":             func() Strategy { return NewEFT() },
	"IGT":             func() Strategy { return NewIGT() },
	"AttentionalBias": func() Strategy { return NewAttentionalBias() },
	"test":            func() Strategy { return NewSmoke() },
}

// Lookup returns a fresh strategy for name.
func Lookup(name string) (Strategy, error) {
	newStrategy, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownStrategy, name, Names())
	}
	return newStrategy(), nil
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
