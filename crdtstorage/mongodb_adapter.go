package crdtstorage

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoRecord is the BSON shape a Record is stored as; Data is kept as
// raw binary rather than re-encoded through the document's own JSON
// view, so LoadRecord gets back exactly the bytes document.Load needs.
type mongoRecord struct {
	ID           string            `bson:"_id"`
	Data         []byte            `bson:"data"`
	LastModified int64             `bson:"last_modified_unix_nano"`
	Version      int               `bson:"version"`
	Metadata     map[string]string `bson:"metadata,omitempty"`
}

// MongoDBAdapter persists each document as one BSON document in a
// MongoDB collection. Grounded on the teacher's
// luvjson/crdtstorage/mongodb_adapter.go (MongoDBAdapter): same
// upsert-by-id replace pattern, storing this engine's own binary
// encoding under a dedicated field instead of re-deriving the
// document's JSON view on every save.
type MongoDBAdapter struct {
	collection *mongo.Collection
}

// NewMongoDBAdapter returns an adapter backed by collection.
func NewMongoDBAdapter(collection *mongo.Collection) *MongoDBAdapter {
	return &MongoDBAdapter{collection: collection}
}

func (a *MongoDBAdapter) SaveRecord(ctx context.Context, rec *Record) error {
	doc := mongoRecord{
		ID:           rec.ID,
		Data:         rec.Data,
		LastModified: rec.LastModified.UnixNano(),
		Version:      rec.Version,
		Metadata:     rec.Metadata,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := a.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, opts); err != nil {
		return errors.Wrap(err, "crdtstorage: save document to mongodb")
	}
	return nil
}

func (a *MongoDBAdapter) LoadRecord(ctx context.Context, id string) (*Record, error) {
	var doc mongoRecord
	err := a.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "crdtstorage: load document from mongodb")
	}
	return &Record{
		ID:           doc.ID,
		Data:         doc.Data,
		LastModified: timeFromUnixNano(doc.LastModified),
		Version:      doc.Version,
		Metadata:     doc.Metadata,
	}, nil
}

func (a *MongoDBAdapter) ListRecords(ctx context.Context) ([]string, error) {
	cursor, err := a.collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(err, "crdtstorage: list documents in mongodb")
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, errors.Wrap(err, "crdtstorage: decode document id from mongodb")
		}
		ids = append(ids, row.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "crdtstorage: iterate mongodb cursor")
	}
	return ids, nil
}

func (a *MongoDBAdapter) DeleteRecord(ctx context.Context, id string) error {
	if _, err := a.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(err, "crdtstorage: delete document from mongodb")
	}
	return nil
}

func (a *MongoDBAdapter) Close() error {
	return nil
}
