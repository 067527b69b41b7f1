package strata

import (
	"errors"
	"testing"

	"github.com/Azhovan/strata/value"
)

func TestGet_Indirection(t *testing.T) {
	store, _, _, _ := newTestStore(map[string]string{
		"conf/base": `{:port 5000
		               :http-port #conf/ref :port
		               :admin-port #conf/ref :http-port
		               :missing #conf/ref [:nope 8080]
		               :missing-nil #conf/ref :nope
		               :chained-fallback #conf/ref [:nope #conf/ref :port]}`,
	}, nil, nil)

	tests := []struct {
		key  string
		want value.Value
	}{
		{"http-port", value.Int(5000)},
		{"admin-port", value.Int(5000)},
		{"missing", value.Int(8080)},
		{"missing-nil", nil},
		{"chained-fallback", value.Int(5000)},
	}
	for _, tt := range tests {
		if got := store.Get(tt.key, value.String("not-found")); got != tt.want {
			t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}

	// The stored value stays an indirection.
	if _, ok := store.GetAll()["http-port"].(value.Ref); !ok {
		t.Errorf("GetAll()[http-port] = %v, want an unresolved Ref", store.GetAll()["http-port"])
	}
}

func TestGet_IndirectionFollowsSet(t *testing.T) {
	store, _, _, _ := newTestStore(map[string]string{
		"conf/base": `{:port 5000 :http-port #conf/ref :port}`,
	}, nil, nil)

	if got := store.Get("http-port", nil); got != value.Int(5000) {
		t.Fatalf("http-port = %v, want 5000", got)
	}

	store.Set("port", value.Int(6000))
	if got := store.Get("http-port", nil); got != value.Int(6000) {
		t.Errorf("http-port after Set = %v, want 6000", got)
	}
}

// TestGet_IndirectionAcrossLayers verifies that a reference in a low layer
// sees the value supplied by a higher one.
func TestGet_IndirectionAcrossLayers(t *testing.T) {
	store, _, _, _ := newTestStore(
		map[string]string{"conf/base": `{:old-name #conf/ref :new-name}`},
		map[string]string{"NEW_NAME": "from-env"},
		nil,
	)

	if got := store.Get("old-name", nil); got != value.String("from-env") {
		t.Errorf("old-name = %v, want \"from-env\"", got)
	}
}

func TestGet_IndirectionCycle(t *testing.T) {
	store, _, _, _ := newTestStore(map[string]string{
		"conf/base": `{:a #conf/ref [:b 1] :b #conf/ref [:a 2] :self #conf/ref [:self 3]}`,
	}, nil, nil)

	// a -> b -> a: the reference closing the cycle is b's, so its fallback wins.
	if got := store.Get("a", nil); got != value.Int(2) {
		t.Errorf("Get(a) = %v, want 2", got)
	}
	if got := store.Get("b", nil); got != value.Int(1) {
		t.Errorf("Get(b) = %v, want 1", got)
	}
	if got := store.Get("self", nil); got != value.Int(3) {
		t.Errorf("Get(self) = %v, want 3", got)
	}

	v, ok, err := store.Lookup("a")
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Lookup(a) error = %v, want *CycleError", err)
	}
	if !ok {
		t.Error("Lookup(a) should report the key as present")
	}
	if v != value.Int(2) {
		t.Errorf("Lookup(a) value = %v, want the fallback 2", v)
	}
	if got := cycle.Error(); got != "indirection cycle: a -> b -> a" {
		t.Errorf("CycleError = %q", got)
	}
}

// TestGet_IndirectionRevisitsMissingKey verifies that passing through the
// same missing key twice is not a cycle: each hop follows another fallback.
func TestGet_IndirectionRevisitsMissingKey(t *testing.T) {
	store, _, _, _ := newTestStore(map[string]string{
		"conf/base": `{:c #conf/ref [:gone #conf/ref [:gone #conf/ref :z]]
		               :z 1
		               :a #conf/ref [:missing #conf/ref :y]
		               :y #conf/ref [:missing 9]
		               :b #conf/ref [:gone #conf/ref [:gone 5]]}`,
	}, nil, nil)

	tests := []struct {
		key  string
		want value.Value
	}{
		{"c", value.Int(1)},
		{"a", value.Int(9)},
		{"y", value.Int(9)},
		{"b", value.Int(5)},
	}
	for _, tt := range tests {
		v, ok, err := store.Lookup(tt.key)
		if err != nil {
			t.Errorf("Lookup(%q) error = %v, want none", tt.key, err)
		}
		if !ok || v != tt.want {
			t.Errorf("Lookup(%q) = %v, %v, want %v, true", tt.key, v, ok, tt.want)
		}
		if got := store.Get(tt.key, nil); got != tt.want {
			t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestGet_IndirectionDepthLimit(t *testing.T) {
	store, _, _, _ := newTestStore(map[string]string{
		"conf/base": `{:k0 #conf/ref :k1 :k1 #conf/ref :k2 :k2 #conf/ref :k3 :k3 #conf/ref [:k4 :deep] :k4 "end"}`,
	}, nil, nil, WithMaxRefDepth(2))

	_, _, err := store.Lookup("k0")
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected *CycleError past the depth limit, got %v", err)
	}

	if got := store.Get("k2", nil); got != value.String("end") {
		t.Errorf("Get(k2) = %v, want \"end\"", got)
	}
}
