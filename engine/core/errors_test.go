package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{OpFailed("vkCreateBuffer: %d", -2), KindOpFailed},
		{MissingResource("no pipeline %d", 3), KindMissingResource},
		{Compatibility("no FIFO"), KindCompatibility},
		{EngineError("out of range"), KindEngine},
		{UserError("bad descriptor"), KindUser},
	}
	for _, c := range cases {
		if !IsKind(c.err, c.kind) {
			t.Errorf("%v: expected kind %s", c.err, c.kind)
		}
		if !errors.Is(c.err, &Error{Kind: c.kind}) {
			t.Errorf("%v: errors.Is failed for kind %s", c.err, c.kind)
		}
	}
}

func TestWrapKeepsChain(t *testing.T) {
	inner := errors.New("device lost")
	err := fmt.Errorf("frame 12: %w", Wrap(KindOpFailed, inner, "submit"))
	if !errors.Is(err, inner) {
		t.Fatal("wrapped error lost its cause")
	}
	if !IsKind(err, KindOpFailed) {
		t.Fatal("wrapped error lost its kind")
	}
	if IsKind(err, KindUser) {
		t.Fatal("kind must not match a different kind")
	}
}

func TestOutOfDateIsNotAKind(t *testing.T) {
	for _, k := range []Kind{KindOpFailed, KindMissingResource, KindCompatibility, KindEngine, KindUser} {
		if IsKind(ErrSwapchainOutOfDate, k) {
			t.Fatalf("out of date should not classify as %s", k)
		}
	}
}
