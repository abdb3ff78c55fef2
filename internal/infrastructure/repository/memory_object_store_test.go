package repository

import (
	"context"
	"testing"

	"github.com/cbernatz/Etsywp/internal/ports"
)

func seed(t *testing.T, s *MemoryObjectStore, objs ...*ports.Object) {
	t.Helper()
	for _, obj := range objs {
		if _, err := s.Insert(context.Background(), obj); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
}

func TestFindOneReturnsNilWhenAbsent(t *testing.T) {
	s := NewMemoryObjectStore()
	obj, err := s.FindOne(context.Background(), ports.Query{Type: "widget"})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if obj != nil {
		t.Errorf("got %+v, want nil", obj)
	}
}

func TestInsertAndFindByField(t *testing.T) {
	s := NewMemoryObjectStore()
	seed(t, s,
		&ports.Object{Type: "widget", Title: "A", Fields: map[string]interface{}{"key": int64(1)}},
		&ports.Object{Type: "widget", Title: "B", Fields: map[string]interface{}{"key": int64(2)}},
	)

	// Numeric field equality tolerates width differences.
	obj, err := s.FindOne(context.Background(), ports.Query{Type: "widget", Field: "key", Value: 2})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if obj == nil || obj.Title != "B" {
		t.Fatalf("got %+v, want title B", obj)
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	s := NewMemoryObjectStore()
	obj := &ports.Object{Type: "widget", Title: "before"}
	id, err := s.Insert(context.Background(), obj)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	obj.Title = "after"
	if err := s.Update(context.Background(), obj); err != nil {
		t.Fatalf("Update: %v", err)
	}

	all, err := s.Find(context.Background(), ports.Query{Type: "widget"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d objects, want 1", len(all))
	}
	if all[0].ID != id || all[0].Title != "after" {
		t.Errorf("got %+v, want id %s title after", all[0], id)
	}
}

func TestUpdateUnknownIDFails(t *testing.T) {
	s := NewMemoryObjectStore()
	err := s.Update(context.Background(), &ports.Object{ID: "obj-404", Type: "widget"})
	if err == nil {
		t.Fatal("Update of unknown ID succeeded")
	}
}

func TestFindPreservesInsertionOrder(t *testing.T) {
	s := NewMemoryObjectStore()
	seed(t, s,
		&ports.Object{Type: "widget", Title: "first"},
		&ports.Object{Type: "widget", Title: "second"},
		&ports.Object{Type: "widget", Title: "third"},
	)

	all, err := s.Find(context.Background(), ports.Query{Type: "widget"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, title := range want {
		if all[i].Title != title {
			t.Errorf("position %d = %q, want %q", i, all[i].Title, title)
		}
	}
}

func TestFindSortsByNumericFieldDescending(t *testing.T) {
	s := NewMemoryObjectStore()
	seed(t, s,
		&ports.Object{Type: "widget", Title: "low", Fields: map[string]interface{}{"rank": int64(3)}},
		&ports.Object{Type: "widget", Title: "high", Fields: map[string]interface{}{"rank": int64(12)}},
		&ports.Object{Type: "widget", Title: "mid", Fields: map[string]interface{}{"rank": int64(5)}},
	)

	all, err := s.Find(context.Background(), ports.Query{Type: "widget", SortField: "rank", SortDesc: true})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := []string{"high", "mid", "low"}
	for i, title := range want {
		if all[i].Title != title {
			t.Errorf("position %d = %q, want %q", i, all[i].Title, title)
		}
	}
}

func TestMinFieldIsStrictlyGreater(t *testing.T) {
	s := NewMemoryObjectStore()
	seed(t, s,
		&ports.Object{Type: "widget", Title: "zero", Fields: map[string]interface{}{"rank": int64(0)}},
		&ports.Object{Type: "widget", Title: "one", Fields: map[string]interface{}{"rank": int64(1)}},
		&ports.Object{Type: "widget", Title: "unranked"},
	)

	all, err := s.Find(context.Background(), ports.Query{Type: "widget", MinField: "rank", Min: 0})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(all) != 1 || all[0].Title != "one" {
		t.Fatalf("got %+v, want only \"one\"", all)
	}
}

func TestFindLimitAndOffset(t *testing.T) {
	s := NewMemoryObjectStore()
	seed(t, s,
		&ports.Object{Type: "widget", Title: "a"},
		&ports.Object{Type: "widget", Title: "b"},
		&ports.Object{Type: "widget", Title: "c"},
	)

	page, err := s.Find(context.Background(), ports.Query{Type: "widget", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(page) != 1 || page[0].Title != "b" {
		t.Fatalf("got %+v, want only \"b\"", page)
	}

	past, err := s.Find(context.Background(), ports.Query{Type: "widget", Offset: 10})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("offset past end returned %d objects", len(past))
	}
}

func TestDeleteByType(t *testing.T) {
	s := NewMemoryObjectStore()
	seed(t, s,
		&ports.Object{Type: "widget", Title: "a"},
		&ports.Object{Type: "widget", Title: "b"},
		&ports.Object{Type: "gadget", Title: "keep"},
	)

	deleted, err := s.DeleteByType(context.Background(), "widget")
	if err != nil {
		t.Fatalf("DeleteByType: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	left, err := s.Find(context.Background(), ports.Query{Type: "gadget"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("got %d gadgets, want 1", len(left))
	}
}

func TestFindReturnsClones(t *testing.T) {
	s := NewMemoryObjectStore()
	seed(t, s, &ports.Object{Type: "widget", Title: "orig", Fields: map[string]interface{}{"k": "v"}})

	got, err := s.FindOne(context.Background(), ports.Query{Type: "widget"})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	got.Title = "mutated"
	got.Fields["k"] = "mutated"

	again, err := s.FindOne(context.Background(), ports.Query{Type: "widget"})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if again.Title != "orig" || again.Fields["k"] != "v" {
		t.Errorf("stored object was mutated through a returned copy: %+v", again)
	}
}
