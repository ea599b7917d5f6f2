package sequences

import (
	"fmt"
	"sort"
)

// Catalog indexes sequences by name.
type Catalog struct {
	byName map[string]*Sequence
	names  []string
}

// NewCatalog indexes seqs. The first sequence with a given name wins.
func NewCatalog(seqs []*Sequence) *Catalog {
	c := &Catalog{byName: make(map[string]*Sequence, len(seqs))}
	for _, seq := range seqs {
		if seq == nil {
			continue
		}
		if _, exists := c.byName[seq.Name]; exists {
			continue
		}
		c.byName[seq.Name] = seq
		c.names = append(c.names, seq.Name)
	}
	sort.Strings(c.names)
	return c
}

// Get returns the named sequence.
func (c *Catalog) Get(name string) (*Sequence, error) {
	seq, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSequenceNotFound, name)
	}
	return seq, nil
}

// Names returns every sequence name, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// List returns every sequence, sorted by name.
func (c *Catalog) List() []*Sequence {
	out := make([]*Sequence, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.byName[name])
	}
	return out
}

// Len returns the number of sequences.
func (c *Catalog) Len() int {
	return len(c.names)
}
