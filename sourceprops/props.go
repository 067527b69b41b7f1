// Package sourceprops provides the property table: the highest-precedence
// configuration layer, populated programmatically or from -D flags before
// the store loads.
//
// Property names use dotted style ("conf.env", "database.url") and are
// normalized like environment variables.
package sourceprops

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Azhovan/strata"
	"github.com/Azhovan/strata/internal/normalize"
	"github.com/Azhovan/strata/value"
)

// System is the process-wide property table used by package conf.
var System = New(nil)

// Table is a concurrency-safe name/value table. It implements
// strata.Source and notifies watchers on every change.
type Table struct {
	mu       sync.RWMutex
	props    map[string]string
	watchers map[chan strata.ChangeEvent]struct{}

	// RawValues keeps values as strings instead of parsing literals.
	RawValues bool
}

// New creates a table holding a copy of props.
func New(props map[string]string) *Table {
	t := &Table{
		props:    make(map[string]string, len(props)),
		watchers: make(map[chan strata.ChangeEvent]struct{}),
	}
	for k, v := range props {
		t.props[k] = v
	}
	return t
}

// Set stores a property.
func (t *Table) Set(name, val string) {
	t.mu.Lock()
	t.props[name] = val
	t.mu.Unlock()
	t.notify("property-set:" + name)
}

// SetAll stores every entry of props.
func (t *Table) SetAll(props map[string]string) {
	if len(props) == 0 {
		return
	}
	t.mu.Lock()
	for k, v := range props {
		t.props[k] = v
	}
	t.mu.Unlock()
	t.notify(fmt.Sprintf("property-set:%d", len(props)))
}

// Unset removes a property.
func (t *Table) Unset(name string) {
	t.mu.Lock()
	_, existed := t.props[name]
	delete(t.props, name)
	t.mu.Unlock()
	if existed {
		t.notify("property-unset:" + name)
	}
}

// Clear removes every property.
func (t *Table) Clear() {
	t.mu.Lock()
	n := len(t.props)
	t.props = make(map[string]string)
	t.mu.Unlock()
	if n > 0 {
		t.notify("property-clear")
	}
}

// Get returns a property's raw value.
func (t *Table) Get(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.props[name]
	return v, ok
}

// Snapshot returns a copy of the raw table.
func (t *Table) Snapshot() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.props))
	for k, v := range t.props {
		out[k] = v
	}
	return out
}

// Name returns "prop"; provenance entries read "prop:raw.name".
func (t *Table) Name() string {
	return "prop"
}

// Load returns the normalized table.
func (t *Table) Load(ctx context.Context) (value.Map, error) {
	result, _, err := t.LoadWithKeys(ctx)
	return result, err
}

// LoadWithKeys is Load that also returns the raw property name behind each key.
func (t *Table) LoadWithKeys(ctx context.Context) (value.Map, map[string]string, error) {
	result, names := normalize.Table(t.Snapshot(), normalize.TableOptions{ParseValues: !t.RawValues})
	return result, names, nil
}

// Watch emits an event after every change until ctx is done. Events are
// coalesced when the receiver is slow.
func (t *Table) Watch(ctx context.Context) (<-chan strata.ChangeEvent, error) {
	ch := make(chan strata.ChangeEvent, 1)

	t.mu.Lock()
	t.watchers[ch] = struct{}{}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.watchers, ch)
		close(ch)
		t.mu.Unlock()
	}()

	return ch, nil
}

func (t *Table) notify(cause string) {
	event := strata.ChangeEvent{At: time.Now(), Cause: cause}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for ch := range t.watchers {
		select {
		case ch <- event:
		default:
		}
	}
}

// ParseDefine splits a "name=value" definition as given to -D.
func ParseDefine(def string) (string, string, error) {
	name, val, ok := strings.Cut(def, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid property definition %q, expected name=value", def)
	}
	return name, val, nil
}
