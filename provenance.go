package strata

import "sort"

// Provenance lists where each key of a snapshot came from.
type Provenance struct {
	Keys []KeyProvenance // Sorted by Key
}

// KeyProvenance describes where a key's value came from.
type KeyProvenance struct {
	Key        string `json:"key"`        // Canonical key (e.g., "database-url")
	SourceName string `json:"sourceName"` // Source identifier (e.g., "env:DATABASE_URL")
}

// Provenance returns source information for the current snapshot. It
// does not trigger a load.
func (s *Store) Provenance() (*Provenance, bool) {
	st := s.current.Load()
	if st == nil {
		return nil, false
	}
	return provenanceOf(st), true
}

// SourceOf returns the source that supplied key in the current snapshot.
func (s *Store) SourceOf(key string) (string, bool) {
	st := s.current.Load()
	if st == nil {
		return "", false
	}
	src, ok := st.sources[key]
	return src, ok
}

func provenanceOf(st *state) *Provenance {
	keys := make([]KeyProvenance, 0, len(st.sources))
	for key, src := range st.sources {
		keys = append(keys, KeyProvenance{Key: key, SourceName: src})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Key < keys[j].Key
	})
	return &Provenance{Keys: keys}
}
