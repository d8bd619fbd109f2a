package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"debatetimer/models"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	debatesCollection     = "debates"
	transcriptsCollection = "transcripts"
	suggestionsCollection = "suggestions"
)

// extractDBName parses the database name from the URI, defaulting to "debatetimer"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "debatetimer"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:]
	}
	return "debatetimer"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI
func ConnectMongoDB(ctx context.Context, uri string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	log.Info().Str("database", dbName).Msg("connected to MongoDB")
	return client, client.Database(dbName), nil
}

// MongoRepository implements Repository on MongoDB.
type MongoRepository struct {
	debates     *mongo.Collection
	transcripts *mongo.Collection
	suggestions *mongo.Collection
}

func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{
		debates:     database.Collection(debatesCollection),
		transcripts: database.Collection(transcriptsCollection),
		suggestions: database.Collection(suggestionsCollection),
	}
}

// EnsureIndexes creates the indexes the listing queries rely on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.transcripts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "debateId", Value: 1}, {Key: "seq", Value: 1}},
	}); err != nil {
		return fmt.Errorf("transcripts index: %w", err)
	}
	if _, err := r.suggestions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "debateId", Value: 1}, {Key: "timestamp", Value: -1}},
	}); err != nil {
		return fmt.Errorf("suggestions index: %w", err)
	}
	if _, err := r.debates.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("debates index: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (r *MongoRepository) CreateDebate(ctx context.Context, debate *models.Debate) error {
	if _, err := r.debates.InsertOne(ctx, debate); err != nil {
		return fmt.Errorf("insert debate: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetDebate(ctx context.Context, id string) (*models.Debate, error) {
	var debate models.Debate
	if err := r.debates.FindOne(ctx, bson.M{"_id": id}).Decode(&debate); err != nil {
		return nil, notFound(err)
	}
	return &debate, nil
}

func (r *MongoRepository) ListDebates(ctx context.Context, filter models.DebateFilter) ([]models.Debate, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Skip > 0 {
		opts.SetSkip(filter.Skip)
	}

	cursor, err := r.debates.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find debates: %w", err)
	}
	defer cursor.Close(ctx)

	debates := []models.Debate{}
	if err := cursor.All(ctx, &debates); err != nil {
		return nil, fmt.Errorf("decode debates: %w", err)
	}
	return debates, nil
}

func (r *MongoRepository) UpdateDebate(ctx context.Context, id string, update models.DebateUpdate) (*models.Debate, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Topic != nil {
		set["topic"] = *update.Topic
	}
	if update.Affirmative != nil {
		set["affirmative"] = *update.Affirmative
	}
	if update.Negative != nil {
		set["negative"] = *update.Negative
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var debate models.Debate
	err := r.debates.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&debate)
	if err != nil {
		return nil, notFound(err)
	}
	return &debate, nil
}

func (r *MongoRepository) DeleteDebate(ctx context.Context, id string) error {
	res, err := r.debates.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete debate: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if _, err := r.transcripts.DeleteMany(ctx, bson.M{"debateId": id}); err != nil {
		return fmt.Errorf("delete transcripts: %w", err)
	}
	if _, err := r.suggestions.DeleteMany(ctx, bson.M{"debateId": id}); err != nil {
		return fmt.Errorf("delete suggestions: %w", err)
	}
	return nil
}

func (r *MongoRepository) updateDebate(ctx context.Context, filter, update bson.M) error {
	res, err := r.debates.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) MarkDebateStarted(ctx context.Context, id string, at time.Time) error {
	return r.updateDebate(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"status": models.StatusInProgress, "startedAt": at, "updatedAt": at},
		"$unset": bson.M{"endedAt": ""},
	})
}

func (r *MongoRepository) MarkDebateEnded(ctx context.Context, id string, at time.Time) error {
	return r.updateDebate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": models.StatusEnded, "endedAt": at, "updatedAt": at},
	})
}

func (r *MongoRepository) MarkPhaseStarted(ctx context.Context, debateID, phaseID string, at time.Time) error {
	return r.updateDebate(ctx, bson.M{"_id": debateID, "phases.id": phaseID}, bson.M{
		"$set":   bson.M{"phases.$.startedAt": at, "updatedAt": at},
		"$unset": bson.M{"phases.$.endedAt": ""},
	})
}

func (r *MongoRepository) MarkPhaseEnded(ctx context.Context, debateID, phaseID string, at time.Time) error {
	return r.updateDebate(ctx, bson.M{"_id": debateID, "phases.id": phaseID}, bson.M{
		"$set": bson.M{"phases.$.endedAt": at, "updatedAt": at},
	})
}

// AddTranscript reserves a sequence number with an atomic increment, inserts
// the transcript, then adds it to the count and statistics.
func (r *MongoRepository) AddTranscript(ctx context.Context, t *models.Transcript, attribute Attributor) error {
	reserve := func() (int, error) {
		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.Before).
			SetProjection(bson.M{"nextSeq": 1})
		var before struct {
			NextSeq int `bson:"nextSeq"`
		}
		err := r.debates.FindOneAndUpdate(ctx, bson.M{"_id": t.DebateID}, bson.M{"$inc": bson.M{"nextSeq": 1}}, opts).Decode(&before)
		if err != nil {
			return 0, notFound(err)
		}
		return before.NextSeq, nil
	}
	insert := func() error {
		if _, err := r.transcripts.InsertOne(ctx, t); err != nil {
			return fmt.Errorf("insert transcript: %w", err)
		}
		return nil
	}
	count := func() error {
		inc := models.StatisticsIncrement(t.Speaker, t.Duration)
		inc["transcriptCount"] = 1
		if _, err := r.debates.UpdateOne(ctx, bson.M{"_id": t.DebateID}, bson.M{"$inc": inc}); err != nil {
			return fmt.Errorf("count transcript: %w", err)
		}
		return nil
	}
	return addTranscript(t, attribute, reserve, insert, count)
}

func (r *MongoRepository) findTranscripts(ctx context.Context, debateID string, opts *options.FindOptions) ([]models.Transcript, error) {
	cursor, err := r.transcripts.Find(ctx, bson.M{"debateId": debateID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find transcripts: %w", err)
	}
	defer cursor.Close(ctx)

	transcripts := []models.Transcript{}
	if err := cursor.All(ctx, &transcripts); err != nil {
		return nil, fmt.Errorf("decode transcripts: %w", err)
	}
	return transcripts, nil
}

func (r *MongoRepository) ListTranscripts(ctx context.Context, debateID string) ([]models.Transcript, error) {
	return r.findTranscripts(ctx, debateID, options.Find().SetSort(bson.M{"seq": 1}))
}

func (r *MongoRepository) RecentTranscripts(ctx context.Context, debateID string, n int) ([]models.Transcript, error) {
	opts := options.Find().SetSort(bson.M{"seq": -1})
	if n > 0 {
		opts.SetLimit(int64(n))
	}
	transcripts, err := r.findTranscripts(ctx, debateID, opts)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(transcripts)-1; i < j; i, j = i+1, j-1 {
		transcripts[i], transcripts[j] = transcripts[j], transcripts[i]
	}
	return transcripts, nil
}

func (r *MongoRepository) CountTranscripts(ctx context.Context, debateID string) (int, error) {
	n, err := r.transcripts.CountDocuments(ctx, bson.M{"debateId": debateID})
	if err != nil {
		return 0, fmt.Errorf("count transcripts: %w", err)
	}
	return int(n), nil
}

func (r *MongoRepository) SaveSuggestion(ctx context.Context, s *models.Suggestion) error {
	if _, err := r.suggestions.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

func (r *MongoRepository) ListSuggestions(ctx context.Context, debateID string, limit int) ([]models.Suggestion, error) {
	opts := options.Find().SetSort(bson.M{"timestamp": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.suggestions.Find(ctx, bson.M{"debateId": debateID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find suggestions: %w", err)
	}
	defer cursor.Close(ctx)

	suggestions := []models.Suggestion{}
	if err := cursor.All(ctx, &suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return suggestions, nil
}
