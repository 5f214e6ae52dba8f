package repository

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements Collection on a MongoDB collection.
// New documents get ObjectID identifiers, exposed as hex strings. Documents
// created elsewhere with string _id values are addressed by that string,
// even when it happens to look like an ObjectID hex.
type MongoRepo struct {
	col *mongo.Collection

	mu sync.RWMutex
	// objectIDs holds the hex form of every id read or inserted as an ObjectID.
	objectIDs map[string]struct{}
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col, objectIDs: map[string]struct{}{}}
}

func (m *MongoRepo) All(ctx context.Context) ([]Document, error) {
	cur, err := m.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find places: %w", err)
	}
	defer cur.Close(ctx)
	out := []Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode place: %w", err)
		}
		id := m.idString(raw["_id"])
		delete(raw, "_id")
		out = append(out, Document{ID: id, Fields: map[string]any(raw)})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}
	return out, nil
}

func (m *MongoRepo) Add(ctx context.Context, fields map[string]any) (string, error) {
	doc := bson.M(copyFields(fields))
	delete(doc, "_id")
	res, err := m.col.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert place: %w", err)
	}
	return m.idString(res.InsertedID), nil
}

func (m *MongoRepo) Set(ctx context.Context, id string, fields map[string]any) error {
	if id == "" {
		return ErrInvalidID
	}
	doc := bson.M(copyFields(fields))
	delete(doc, "_id")
	opts := options.Replace().SetUpsert(true)
	if _, err := m.col.ReplaceOne(ctx, bson.M{"_id": m.idValue(id)}, doc, opts); err != nil {
		return fmt.Errorf("replace place %s: %w", id, err)
	}
	return nil
}

// Subscribe opens a change stream on the collection and signals once per
// change event. Change streams need a replica set or sharded cluster.
func (m *MongoRepo) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	cs, err := m.col.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("watch places: %w", err)
	}
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch, nil
}

// idString exposes a stored _id as a string and remembers ObjectIDs so
// idValue can restore the original BSON type.
func (m *MongoRepo) idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		hex := id.Hex()
		m.mu.Lock()
		m.objectIDs[hex] = struct{}{}
		m.mu.Unlock()
		return hex
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// idValue maps an identifier back to the stored _id value. Only ids seen as
// ObjectIDs become ObjectIDs again; everything else stays a string.
func (m *MongoRepo) idValue(id string) any {
	m.mu.RLock()
	_, isOID := m.objectIDs[id]
	m.mu.RUnlock()
	if isOID {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			return oid
		}
	}
	return id
}
