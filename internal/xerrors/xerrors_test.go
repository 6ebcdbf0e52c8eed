package xerrors

import (
	"errors"
	"testing"
)

func TestErrnoMapsEachKind(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidArgument: -22,
		KindNotFound:        -2,
		KindNoMemory:        -12,
		KindBusy:            -16,
		KindLoadFailure:     -38,
		KindInitFailure:     -5,
		KindTransient:       -11,
		KindNone:            -1,
	}
	for kind, want := range cases {
		if got := kind.Errno(); got != want {
			t.Errorf("%s.Errno() = %d, want %d", kind, got, want)
		}
	}
}

func TestNewAttachesKind(t *testing.T) {
	err := New(KindNotFound, "no such object")
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected KindNotFound, got %s", KindOf(err))
	}
	if err.Error() != "no such object" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestWrapPreservesKindAndUnderlyingError(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(KindLoadFailure, cause, "loading config %s", "rig.json")

	if KindOf(wrapped) != KindLoadFailure {
		t.Fatalf("expected KindLoadFailure, got %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected wrapped error to unwrap to the original cause")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if got := Wrap(KindTransient, nil, "context"); got != nil {
		t.Fatalf("expected nil passthrough, got %v", got)
	}
}

func TestKindOfUnclassifiedErrorIsNone(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindNone {
		t.Fatalf("expected KindNone for an untagged error, got %s", got)
	}
}

func TestKindOfNilIsNone(t *testing.T) {
	if got := KindOf(nil); got != KindNone {
		t.Fatalf("expected KindNone for nil, got %s", got)
	}
}

func TestErrnoOfNilIsZero(t *testing.T) {
	if got := Errno(nil); got != 0 {
		t.Fatalf("expected 0 for nil error, got %d", got)
	}
}

func TestStackTraceNonEmptyForNewError(t *testing.T) {
	err := New(KindInitFailure, "boom")
	if StackTrace(err) == "" {
		t.Fatal("expected a non-empty stack trace for a freshly created kindError")
	}
}

func TestStackTraceEmptyForPlainError(t *testing.T) {
	if got := StackTrace(errors.New("plain")); got != "" {
		t.Fatalf("expected empty stack trace for a plain error, got %q", got)
	}
}
