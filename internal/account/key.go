package account

import "strings"

// Key identifies an account's position in the budget tree as an ordered
// path of segments, e.g. "campaign:strategy:spend". The root of a tree
// is a length-1 key.
type Key []string

// ParseKey splits a colon-delimited path string into a Key.
func ParseKey(s string) Key {
	if s == "" {
		return Key{}
	}
	return strings.Split(s, ":")
}

// String renders the key back to its colon-delimited wire form.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// IsRoot reports whether k names a top-level (length-1) account.
func (k Key) IsRoot() bool {
	return len(k) == 1
}

// Parent returns k's immediate parent key and true, or a zero key and
// false if k is already a root.
func (k Key) Parent() (Key, bool) {
	if len(k) <= 1 {
		return nil, false
	}
	parent := make(Key, len(k)-1)
	copy(parent, k[:len(k)-1])
	return parent, true
}

// Child returns a new key extending k with segment.
func (k Key) Child(segment string) Key {
	child := make(Key, len(k)+1)
	copy(child, k)
	child[len(k)] = segment
	return child
}

// Ancestors returns every proper ancestor of k, root first, not
// including k itself.
func (k Key) Ancestors() []Key {
	if len(k) <= 1 {
		return nil
	}
	out := make([]Key, 0, len(k)-1)
	for i := 1; i < len(k); i++ {
		seg := make(Key, i)
		copy(seg, k[:i])
		out = append(out, seg)
	}
	return out
}

// IsAncestorOf reports whether k is a strict prefix of other.
func (k Key) IsAncestorOf(other Key) bool {
	if len(k) >= len(other) {
		return false
	}
	for i, seg := range k {
		if other[i] != seg {
			return false
		}
	}
	return true
}

// Equal reports whether k and other name the same path.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i, seg := range k {
		if other[i] != seg {
			return false
		}
	}
	return true
}

// Less orders keys lexicographically segment by segment, shorter
// prefixes sorting before their extensions. Used to obtain a
// deterministic iteration order over a set of keys (invariant sweeps,
// account-summary aggregation).
func (k Key) Less(other Key) bool {
	for i := 0; i < len(k) && i < len(other); i++ {
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return len(k) < len(other)
}
