package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cbernatz/Etsywp/internal/ports"
)

// MemoryObjectStore is an in-process ObjectStore. It backs tests and
// mirrors the Mongo implementation's guarantees, notably insertion
// order for unsorted queries.
type MemoryObjectStore struct {
	mu      sync.Mutex
	nextID  int
	objects []*ports.Object
}

// NewMemoryObjectStore creates an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{}
}

func (s *MemoryObjectStore) Insert(_ context.Context, obj *ports.Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	obj.ID = fmt.Sprintf("obj-%d", s.nextID)
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now()
	}
	s.objects = append(s.objects, cloneObject(obj))
	return obj.ID, nil
}

func (s *MemoryObjectStore) Update(_ context.Context, obj *ports.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.objects {
		if existing.ID == obj.ID {
			updated := cloneObject(obj)
			updated.CreatedAt = existing.CreatedAt
			s.objects[i] = updated
			return nil
		}
	}
	return fmt.Errorf("object not found: %s", obj.ID)
}

func (s *MemoryObjectStore) FindOne(ctx context.Context, q ports.Query) (*ports.Object, error) {
	q.Limit = 1
	q.Offset = 0
	matches, err := s.Find(ctx, q)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

func (s *MemoryObjectStore) Find(_ context.Context, q ports.Query) ([]*ports.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*ports.Object
	for _, obj := range s.objects {
		if matchesQuery(obj, q) {
			matches = append(matches, cloneObject(obj))
		}
	}

	if q.SortField != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			a := numericField(matches[i], q.SortField)
			b := numericField(matches[j], q.SortField)
			if q.SortDesc {
				return a > b
			}
			return a < b
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(matches) {
			return nil, nil
		}
		matches = matches[q.Offset:]
	}
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func (s *MemoryObjectStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, obj := range s.objects {
		if obj.ID == id {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryObjectStore) DeleteByType(_ context.Context, objType string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*ports.Object
	var deleted int64
	for _, obj := range s.objects {
		if obj.Type == objType {
			deleted++
			continue
		}
		kept = append(kept, obj)
	}
	s.objects = kept
	return deleted, nil
}

func matchesQuery(obj *ports.Object, q ports.Query) bool {
	if obj.Type != q.Type {
		return false
	}
	if q.Status != "" && obj.Status != q.Status {
		return false
	}
	if q.Field != "" && !fieldEquals(obj.Field(q.Field), q.Value) {
		return false
	}
	if q.MinField != "" && numericField(obj, q.MinField) <= q.Min {
		return false
	}
	return true
}

// fieldEquals compares field values with numeric normalization, since
// stored numbers may round-trip as different integer widths.
func fieldEquals(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func numericField(obj *ports.Object, key string) float64 {
	f, _ := toFloat(obj.Field(key))
	return f
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cloneObject(obj *ports.Object) *ports.Object {
	clone := *obj
	if obj.Fields != nil {
		clone.Fields = make(map[string]interface{}, len(obj.Fields))
		for k, v := range obj.Fields {
			clone.Fields[k] = v
		}
	}
	return &clone
}
