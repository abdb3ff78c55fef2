package entity

import (
	"time"

	"github.com/cbernatz/Etsywp/internal/ports"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentObjectDoc represents a generic content object in MongoDB.
type ContentObjectDoc struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty"`
	Type      string                 `bson:"type"`
	Title     string                 `bson:"title"`
	Content   string                 `bson:"content"`
	Status    string                 `bson:"status"`
	Fields    map[string]interface{} `bson:"fields"`
	CreatedAt time.Time              `bson:"createdAt"`
	UpdatedAt time.Time              `bson:"updatedAt"`
}

// ToPort converts the MongoDB document to the port-level object.
func (d *ContentObjectDoc) ToPort() *ports.Object {
	return &ports.Object{
		ID:        d.ID.Hex(),
		Type:      d.Type,
		Title:     d.Title,
		Content:   d.Content,
		Status:    d.Status,
		Fields:    d.Fields,
		CreatedAt: d.CreatedAt,
	}
}

// ContentObjectDocFromPort converts a port-level object to a document.
func ContentObjectDocFromPort(obj *ports.Object) *ContentObjectDoc {
	doc := &ContentObjectDoc{
		Type:      obj.Type,
		Title:     obj.Title,
		Content:   obj.Content,
		Status:    obj.Status,
		Fields:    obj.Fields,
		CreatedAt: obj.CreatedAt,
	}
	if obj.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(obj.ID); err == nil {
			doc.ID = objID
		}
	}
	return doc
}
