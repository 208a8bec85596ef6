package services

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
	"pinpoint-server/utils/logger"
	"pinpoint-server/utils/metrics"
)

// MarkerStore is the per-user persisted marker collection.
type MarkerStore interface {
	// List returns the user's markers, newest first.
	List(ctx context.Context, identity *models.Identity) ([]models.Marker, error)
	// Add persists m (its id is ignored) and returns the store-assigned id.
	Add(ctx context.Context, identity *models.Identity, m models.Marker) (string, error)
	Remove(ctx context.Context, identity *models.Identity, id string) error
}

// MongoMarkerStore keeps users/{uid}/markers as documents of one collection
// keyed by uid.
type MongoMarkerStore struct {
	collection *mongo.Collection
	now        func() time.Time
	log        *slog.Logger
}

func NewMongoMarkerStore(ctx context.Context, db *mongo.Database) *MongoMarkerStore {
	collection := db.Collection("markers")

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "uid", Value: 1}, {Key: "timestamp", Value: -1}},
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		logger.L().Warn("marker_index_failed", "err", err)
	}

	return &MongoMarkerStore{
		collection: collection,
		now:        time.Now,
		log:        logger.L(),
	}
}

func (s *MongoMarkerStore) List(ctx context.Context, identity *models.Identity) ([]models.Marker, error) {
	if identity == nil || identity.UserID == "" {
		return nil, errors.ErrDenied
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"uid": identity.UserID}, opts)
	if err != nil {
		return nil, s.unavailable("list", err)
	}
	defer cursor.Close(ctx)

	var docs []models.MarkerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.unavailable("list", err)
	}
	markers := make([]models.Marker, 0, len(docs))
	for _, doc := range docs {
		markers = append(markers, doc.Marker())
	}
	return markers, nil
}

func (s *MongoMarkerStore) Add(ctx context.Context, identity *models.Identity, m models.Marker) (string, error) {
	if identity == nil || identity.UserID == "" {
		return "", errors.ErrDenied
	}
	doc := models.NewMarkerDocument(identity.UserID, m, s.now())
	result, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", s.unavailable("add", err)
	}
	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.ErrInternal.WithDetails("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

func (s *MongoMarkerStore) Remove(ctx context.Context, identity *models.Identity, id string) error {
	if identity == nil || identity.UserID == "" {
		return errors.ErrDenied
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.ErrInvalidInput.WithDetails("invalid marker id " + id)
	}
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid, "uid": identity.UserID})
	if err != nil {
		return s.unavailable("remove", err)
	}
	if result.DeletedCount == 0 {
		return errors.ErrNotFound.WithDetails("marker " + id)
	}
	return nil
}

func (s *MongoMarkerStore) unavailable(op string, err error) error {
	metrics.StoreFailTotal.WithLabelValues(op).Inc()
	s.log.Error("marker_store_error", "op", op, "err", err)
	return errors.ErrUnavailable.WithCause(err)
}
