package object

import "time"

type Info struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Listing is one level of a hierarchical listing: the objects directly under
// the requested prefix plus the immediate child prefixes.
type Listing struct {
	SubPrefixes []string
	Objects     []Info
}

// Properties is the result of a property lookup. An absent object is
// Exists=false, not an error.
type Properties struct {
	Exists bool
	Size   int64
}
