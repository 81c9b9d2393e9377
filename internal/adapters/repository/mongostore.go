package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/ranking/internal/domain/model"
	"github.com/okian/ranking/pkg/metrics"
)

// playerDocument is the persisted shape of a player.
type playerDocument struct {
	Pseudo string `bson:"pseudo"`
	Points int    `bson:"points"`
}

// rankedDocument is one row produced by the ranking pipeline.
type rankedDocument struct {
	Pseudo string `bson:"pseudo"`
	Points int    `bson:"points"`
	Rank   int    `bson:"rank"`
}

func (d rankedDocument) toModel() (model.RankedPlayer, error) {
	p, err := model.NewPlayer(d.Pseudo, d.Points)
	if err != nil {
		return model.RankedPlayer{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return model.NewRankedPlayer(p, d.Rank)
}

// MongoStore keeps players in a MongoDB collection with a unique index on
// pseudo. Ranks are computed server-side with $setWindowFields.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
	owned   bool
}

// OpenMongo connects to uri and returns a store over database.collection.
// The returned store owns the client and disconnects it on Close.
func OpenMongo(ctx context.Context, uri, database, collection string, opts ...MongoOption) (*MongoStore, error) {
	probe := &MongoStore{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(probe)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(probe.timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, probe.timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s, err := NewMongoStore(ctx, client.Database(database).Collection(collection), opts...)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewMongoStore wraps an existing collection and ensures its indexes.
func NewMongoStore(ctx context.Context, coll *mongo.Collection, opts ...MongoOption) (*MongoStore, error) {
	s := &MongoStore{
		client:  coll.Database().Client(),
		coll:    coll,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pseudo", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("pseudo_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("create pseudo index: %w", err)
	}

	metrics.SetRepositoryBackend(BackendMongo)
	return s, nil
}

// rankPipeline ranks the whole collection and optionally filters the result.
func rankPipeline(match bson.D) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$setWindowFields", Value: bson.D{
			{Key: "sortBy", Value: bson.D{{Key: "points", Value: -1}, {Key: "pseudo", Value: 1}}},
			{Key: "output", Value: bson.D{
				{Key: "rank", Value: bson.D{{Key: "$documentNumber", Value: bson.D{}}}},
			}},
		}}},
	}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}
	return append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "rank", Value: 1}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}}}},
	)
}

func (s *MongoStore) observe(op string, start time.Time, err error) {
	metrics.RecordRepositoryOperation(BackendMongo, op, metrics.SinceMs(start))
	if err != nil {
		metrics.RecordRepositoryError(BackendMongo, op)
	}
}

// Add inserts p. The unique index rejects a taken pseudo.
func (s *MongoStore) Add(ctx context.Context, p model.Player) (err error) {
	defer func(start time.Time) { s.observe("add", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.coll.InsertOne(ctx, playerDocument{Pseudo: p.Pseudo(), Points: p.Points()})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", model.ErrDuplicatePlayer, p.Pseudo())
	}
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// Update sets the points of an existing player.
func (s *MongoStore) Update(ctx context.Context, p model.Player) (_ bool, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "pseudo", Value: p.Pseudo()}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "points", Value: p.Points()}}}},
	)
	if err != nil {
		return false, fmt.Errorf("update player: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// By ranks the whole collection and keeps the matching row.
func (s *MongoStore) By(ctx context.Context, pseudo string) (_ model.RankedPlayer, _ bool, err error) {
	defer func(start time.Time) { s.observe("by", start, err) }(time.Now())

	docs, err := s.aggregate(ctx, bson.D{{Key: "pseudo", Value: pseudo}})
	if err != nil {
		return model.RankedPlayer{}, false, err
	}
	if len(docs) == 0 {
		return model.RankedPlayer{}, false, nil
	}
	rp, err := docs[0].toModel()
	if err != nil {
		return model.RankedPlayer{}, false, err
	}
	return rp, true, nil
}

// AllSortedByRank returns the ranked collection.
func (s *MongoStore) AllSortedByRank(ctx context.Context) (_ []model.RankedPlayer, err error) {
	defer func(start time.Time) { s.observe("all", start, err) }(time.Now())

	docs, err := s.aggregate(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.RankedPlayer, 0, len(docs))
	for _, d := range docs {
		rp, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, nil
}

func (s *MongoStore) aggregate(ctx context.Context, match bson.D) ([]rankedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.coll.Aggregate(ctx, rankPipeline(match))
	if err != nil {
		return nil, fmt.Errorf("rank players: %w", err)
	}
	var docs []rankedDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ranked players: %w", err)
	}
	return docs, nil
}

// DeleteAll removes every document of the collection.
func (s *MongoStore) DeleteAll(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("delete_all", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err = s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete players: %w", err)
	}
	return nil
}

// Count returns the number of documents.
func (s *MongoStore) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return int(n), nil
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client when the store opened it.
func (s *MongoStore) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}

// Backend names the storage engine.
func (s *MongoStore) Backend() string { return BackendMongo }
