package strata

import (
	"github.com/Azhovan/strata/value"
)

// resolveRef follows indirections starting from v, the value stored at
// key. A missing target yields the indirection's fallback, which is
// itself resolved when it is an indirection.
//
// When the chain revisits a present key or exceeds maxRefDepth, the
// fallback of the indirection that closes the cycle is returned with a
// *CycleError. Hops through missing keys only count toward the depth:
// each one moves on to a different fallback.
func (s *Store) resolveRef(data value.Map, key string, v value.Value) (value.Value, error) {
	visited := map[string]bool{key: true}
	chain := []string{key}

	for {
		ref, ok := v.(value.Ref)
		if !ok {
			return v, nil
		}

		target, present := data[ref.Key]
		if (present && visited[ref.Key]) || len(chain) > s.maxRefDepth {
			err := &CycleError{Chain: append(chain, ref.Key)}
			if _, nested := ref.Fallback.(value.Ref); nested {
				return nil, err
			}
			return ref.Fallback, err
		}
		chain = append(chain, ref.Key)

		if !present {
			if ref.Fallback == nil {
				return nil, nil
			}
			v = ref.Fallback
			continue
		}
		visited[ref.Key] = true
		v = target
	}
}
