package artifact

import (
	"errors"
	"testing"
)

func TestStoreAndGet(t *testing.T) {
	r := NewRegistry()

	err := r.Store("answer", Record{Type: "data", Value: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := r.Get("answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Name != "answer" {
		t.Errorf("expected name answer, got %q", rec.Name)
	}
	if rec.Value != 42 {
		t.Errorf("expected value 42, got %v", rec.Value)
	}
	if rec.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestGetUnknownName(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("missing")
	if err == nil {
		t.Fatal("expected error for unknown name")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
	if nf.Name != "missing" {
		t.Errorf("expected name missing, got %q", nf.Name)
	}
}

func TestStoreDuplicateName(t *testing.T) {
	r := NewRegistry()

	if err := r.Store("x", Record{Value: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.Store("x", Record{Value: 2})
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}

	// Original value untouched.
	rec, _ := r.Get("x")
	if rec.Value != 1 {
		t.Errorf("expected original value 1, got %v", rec.Value)
	}
}

func TestGetReturnsClone(t *testing.T) {
	r := NewRegistry()

	value := map[string]any{"items": []any{"a", "b"}}
	if err := r.Store("data", Record{Value: value}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := r.Get("data")
	rec.Value.(map[string]any)["items"].([]any)[0] = "mutated"

	again, _ := r.Get("data")
	items := again.Value.(map[string]any)["items"].([]any)
	if items[0] != "a" {
		t.Errorf("stored value was mutated through a read: %v", items[0])
	}
}

func TestListSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zebra", "alpha", "mango"} {
		if err := r.Store(name, Record{Value: name}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	recs := r.List()
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	want := []string{"alpha", "mango", "zebra"}
	for i, rec := range recs {
		if rec.Name != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], rec.Name)
		}
	}
}

func TestChildIsolation(t *testing.T) {
	parent := NewRegistry()
	if err := parent.Store("seed", Record{Value: "s"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child := parent.Child()
	if !child.Has("seed") {
		t.Error("child should see parent snapshot")
	}

	if err := child.Store("local", Record{Value: "l"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parent.Has("local") {
		t.Error("child write leaked into parent")
	}
}

func TestMerge(t *testing.T) {
	parent := NewRegistry()
	if err := parent.Store("seed", Record{Value: "s"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child := parent.Child()
	if err := child.Store("out", Record{Value: "o"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := parent.Merge(child); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !parent.Has("out") {
		t.Error("merged artifact missing from parent")
	}
}

func TestMergeCollision(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	if err := a.Store("x", Record{Value: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Store("x", Record{Value: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := a.Merge(b)
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
}

func TestPromote(t *testing.T) {
	parent := NewRegistry()
	child := NewRegistry()
	if err := child.Store("report", Record{Value: "r"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := child.Store("scratch", Record{Value: "tmp"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := parent.Promote(child, []string{"report", "nope"})
	if !parent.Has("report") {
		t.Error("expected report promoted")
	}
	if parent.Has("scratch") {
		t.Error("promotion is a filter, scratch must not be copied")
	}
	if len(missing) != 1 || missing[0] != "nope" {
		t.Errorf("expected missing [nope], got %v", missing)
	}
}
