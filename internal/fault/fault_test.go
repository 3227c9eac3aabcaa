package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesKind(t *testing.T) {
	inner := New(Network, "clone", "connection refused")
	outer := Wrap(Pipeline, "preflight", inner)

	if KindOf(outer) != Network {
		t.Errorf("KindOf = %v, want Network", KindOf(outer))
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(Network, "clone", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Unknown {
		t.Errorf("KindOf = %v, want Unknown", got)
	}
}

func TestKindSurvivesFmtWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(Persistence, "save", "write failed"))
	if !IsKind(err, Persistence) {
		t.Error("expected Persistence kind through fmt.Errorf wrapping")
	}
}

func TestKindStrings(t *testing.T) {
	cases := map[Kind]string{
		Unknown:           "unknown",
		Validation:        "validation",
		Network:           "network",
		MalformedResponse: "malformed_response",
		Persistence:       "persistence",
		Pipeline:          "pipeline",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
