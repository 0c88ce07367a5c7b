package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/repository/documents"
)

const typeMismatchCode = 14

// record is the on-disk envelope of one hierarchical document.
type record struct {
	ID        string    `bson:"_id"`
	Parent    string    `bson:"parent"`
	Key       string    `bson:"key"`
	Version   int64     `bson:"version"`
	Data      bson.Raw  `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type changeEvent struct {
	OperationType string  `bson:"operationType"`
	FullDocument  *record `bson:"fullDocument"`
}

// MongoDBRepository implements documents.Store on a single MongoDB collection.
type MongoDBRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
	now        func() time.Time
}

var _ documents.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects, pings and prepares the document collection.
func NewMongoDBRepository(ctx context.Context, uri, dbName, collName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client:     client,
		collection: client.Database(dbName).Collection(collName),
		logger:     logger,
		now:        time.Now,
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return repo, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "parent", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetName("parent_key"),
	})
	if err != nil {
		return fmt.Errorf("failed to create parent/key index: %w", err)
	}
	return nil
}

// Get loads the document at path.
func (r *MongoDBRepository) Get(ctx context.Context, path string) (documents.Snapshot, error) {
	if _, _, err := documents.Split(path); err != nil {
		return documents.Snapshot{}, err
	}

	var rec record
	err := r.collection.FindOne(ctx, bson.M{"_id": path}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return documents.Snapshot{}, fmt.Errorf("%s: %w", path, documents.ErrNotFound)
	}
	if err != nil {
		return documents.Snapshot{}, fmt.Errorf("find %s: %w", path, err)
	}
	return rec.snapshot(), nil
}

// Set upserts the document at path and bumps its version.
func (r *MongoDBRepository) Set(ctx context.Context, path string, value any) error {
	parent, key, err := documents.Split(path)
	if err != nil {
		return err
	}
	data, err := bson.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	update := bson.M{
		"$set": bson.M{"parent": parent, "key": key, "data": bson.Raw(data), "updatedAt": r.now().UTC()},
		"$inc": bson.M{"version": int64(1)},
	}
	if _, err := r.collection.UpdateByID(ctx, path, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

// CompareAndSet writes value when the stored version equals expectedVersion.
// Version 0 inserts and fails with ErrConflict if the document already exists.
func (r *MongoDBRepository) CompareAndSet(ctx context.Context, path string, expectedVersion int64, value any) error {
	parent, key, err := documents.Split(path)
	if err != nil {
		return err
	}
	data, err := bson.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if expectedVersion == 0 {
		_, err := r.collection.InsertOne(ctx, record{
			ID:        path,
			Parent:    parent,
			Key:       key,
			Version:   1,
			Data:      bson.Raw(data),
			UpdatedAt: r.now().UTC(),
		})
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s already exists: %w", path, documents.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert %s: %w", path, err)
		}
		return nil
	}

	filter := bson.M{"_id": path, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{"data": bson.Raw(data), "updatedAt": r.now().UTC()},
		"$inc": bson.M{"version": int64(1)},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s at version %d: %w", path, expectedVersion, documents.ErrConflict)
	}
	return nil
}

// UpdateField atomically increments data.<field> by delta.
func (r *MongoDBRepository) UpdateField(ctx context.Context, path, field string, delta float64) error {
	if _, _, err := documents.Split(path); err != nil {
		return err
	}
	if field == "" {
		return fmt.Errorf("update %s: empty field", path)
	}

	update := bson.M{
		"$inc": bson.M{"data." + field: delta, "version": int64(1)},
		"$set": bson.M{"updatedAt": r.now().UTC()},
	}
	res, err := r.collection.UpdateByID(ctx, path, update)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) && writeErr.HasErrorCode(typeMismatchCode) {
			return fmt.Errorf("update %s.%s: %w: %v", path, field, documents.ErrNotNumeric, err)
		}
		return fmt.Errorf("update %s.%s: %w", path, field, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", path, documents.ErrNotFound)
	}
	return nil
}

// Delete removes the document at path.
func (r *MongoDBRepository) Delete(ctx context.Context, path string) error {
	if _, _, err := documents.Split(path); err != nil {
		return err
	}
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": path}); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// List returns documents of collection with keys in [fromKey, toKey], ordered by key.
func (r *MongoDBRepository) List(ctx context.Context, collection, fromKey, toKey string) ([]documents.Snapshot, error) {
	filter := bson.M{"parent": collection}
	keyRange := bson.M{}
	if fromKey != "" {
		keyRange["$gte"] = fromKey
	}
	if toKey != "" {
		keyRange["$lte"] = toKey
	}
	if len(keyRange) > 0 {
		filter["key"] = keyRange
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var out []documents.Snapshot
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode %s entry: %w", collection, err)
		}
		out = append(out, rec.snapshot())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

// Subscribe emits the current document and then follows a change stream on it.
// Change streams require a replica set or sharded deployment.
func (r *MongoDBRepository) Subscribe(ctx context.Context, path string, onChange func(documents.Snapshot)) (func(), error) {
	_, key, err := documents.Split(path)
	if err != nil {
		return nil, err
	}
	if onChange == nil {
		return nil, fmt.Errorf("subscribe %s: nil callback", path)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": path}}},
	}
	stream, err := r.collection.Watch(watchCtx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	initial, err := r.Get(watchCtx, path)
	switch {
	case errors.Is(err, documents.ErrNotFound):
		initial = documents.Snapshot{Path: path, Key: key}
	case err != nil:
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}

	go func() {
		defer func() { _ = stream.Close(context.Background()) }()
		onChange(initial)

		for stream.Next(watchCtx) {
			var event changeEvent
			if err := stream.Decode(&event); err != nil {
				r.logger.Warn("skip undecodable change event", zap.String("path", path), zap.Error(err))
				continue
			}
			if event.OperationType == "delete" || event.FullDocument == nil {
				onChange(documents.Snapshot{Path: path, Key: key})
				continue
			}
			onChange(event.FullDocument.snapshot())
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			r.logger.Error("change stream terminated", zap.String("path", path), zap.Error(err))
		}
	}()

	return cancel, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (rec record) snapshot() documents.Snapshot {
	return documents.Snapshot{
		Path:    rec.ID,
		Key:     rec.Key,
		Version: rec.Version,
		Exists:  true,
		Data:    append(bson.Raw(nil), rec.Data...),
	}
}
