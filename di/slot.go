package di

import "strconv"

// slot holds the sources of one Key: one unnamed and any number of named.
// A name holds at most one source at a time.
type slot struct {
	unnamed beanSource
	named   map[string]beanSource
}

func newSlot() *slot {
	return &slot{named: make(map[string]beanSource)}
}

func (s *slot) get(name string) beanSource {
	if name == "" {
		return s.unnamed
	}
	return s.named[name]
}

// put stores src under name and returns what was there before.
func (s *slot) put(name string, src beanSource) beanSource {
	prev := s.get(name)
	if name == "" {
		s.unnamed = src
	} else {
		s.named[name] = src
	}
	return prev
}

func (s *slot) remove(name string) beanSource {
	prev := s.get(name)
	if name == "" {
		s.unnamed = nil
	} else {
		delete(s.named, name)
	}
	return prev
}

// slotRef addresses one source inside a context.
type slotRef struct {
	key  Key
	name string
}

func (r slotRef) String() string {
	if r.name == "" {
		return r.key.String()
	}
	return r.key.String() + "[" + strconv.Quote(r.name) + "]"
}
