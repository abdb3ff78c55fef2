package ports

import (
	"context"
	"time"
)

// Object statuses. Published objects are publicly visible; drafts only
// exist for bookkeeping.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
)

// Object is a generic content object: a typed record with a title, a
// rich-text body and a bag of typed metadata fields. The content store
// maps shops, listings, pages and cached images onto it.
type Object struct {
	ID        string
	Type      string
	Title     string
	Content   string
	Status    string
	Fields    map[string]interface{}
	CreatedAt time.Time
}

// Field reads a metadata field, returning the zero value when absent.
func (o *Object) Field(key string) interface{} {
	if o.Fields == nil {
		return nil
	}
	return o.Fields[key]
}

// Query selects objects by type, status, field equality, a numeric
// minimum-threshold predicate and a numeric field sort. A zero
// SortField returns objects in insertion order.
type Query struct {
	Type   string
	Status string // empty matches any status

	Field string // equality match on Fields[Field]
	Value interface{}

	MinField string // numeric strictly-greater-than filter
	Min      float64

	SortField string // numeric field to sort by
	SortDesc  bool

	Limit  int // 0 = unlimited
	Offset int
}

// ObjectStore is the persistence boundary: a generic per-object store
// with create/read/update/delete and tag-based querying. Lookups that
// match nothing return (nil, nil), not an error.
type ObjectStore interface {
	Insert(ctx context.Context, obj *Object) (string, error)
	Update(ctx context.Context, obj *Object) error
	FindOne(ctx context.Context, q Query) (*Object, error)
	Find(ctx context.Context, q Query) ([]*Object, error)
	Delete(ctx context.Context, id string) error
	DeleteByType(ctx context.Context, objType string) (int64, error)
}
