// Package mongodb provides the MongoDB-backed implementation of the storage
// used by the application: users, stories and sessions.
// The connection is opened once at startup and shared by every request.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

// Collection names.
const (
	UsersCollection    = "users"
	StoriesCollection  = "stories"
	SessionsCollection = "sessions"
)

// MongoDB is the document store backend.
type MongoDB struct {
	client            *mongo.Client
	database          *mongo.Database
	users             *mongo.Collection
	stories           *mongo.Collection
	sessions          *mongo.Collection
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset     bool
	ConnectRetries uint
}

// InitOption customizes New.
type InitOption func(*initOptions)

// WithDBPreReset drops the database before indexes are created. Tests use it.
func WithDBPreReset(dbPreReset bool) InitOption {
	return func(o *initOptions) {
		o.DBPreReset = dbPreReset
	}
}

// WithConnectRetries limits how many pings are attempted before New gives up.
func WithConnectRetries(retries uint) InitOption {
	return func(o *initOptions) {
		o.ConnectRetries = retries
	}
}

// New connects to uri, waits for the server to answer a ping under an
// exponential backoff and ensures the indexes. Any failure is returned and is
// meant to stop the process.
func New(
	ctx context.Context,
	uri string,
	databaseName string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*MongoDB, error) {
	initOpts := &initOptions{
		DBPreReset:     false,
		ConnectRetries: 5,
	}
	for _, protoOption := range optionsProto {
		protoOption(initOpts)
	}

	client, err := mongo.Connect(
		ctx,
		clientOptions(uri, connectionTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	_, err = backoff.Retry(
		ctx,
		func() (struct{}, error) {
			pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
			defer cancel()

			return struct{}{}, client.Ping(pingCtx, readpref.Primary())
		},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(initOpts.ConnectRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Log.Warnw("mongodb is not reachable yet", "retry_in", next, zap.Error(err))
		}),
	)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping after %d attempts: %w", initOpts.ConnectRetries, err)
	}

	database := client.Database(databaseName)
	result := &MongoDB{
		client:            client,
		database:          database,
		users:             database.Collection(UsersCollection),
		stories:           database.Collection(StoriesCollection),
		sessions:          database.Collection(SessionsCollection),
		connectionTimeout: connectionTimeout,
	}

	if initOpts.DBPreReset {
		if err := database.Drop(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongodb reset: %w", err)
		}
	}

	if err := result.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb indexes: %w", err)
	}

	return result, nil
}

func clientOptions(uri string, connectionTimeout time.Duration) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectionTimeout).
		SetServerSelectionTimeout(connectionTimeout)
}

func (db *MongoDB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "google_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.stories.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})

	return err
}

// Ping checks the server within the connection timeout.
func (db *MongoDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.client.Ping(ctxWithTimeout, readpref.Primary())
}

// Close disconnects the client.
func (db *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), db.connectionTimeout)
	defer cancel()

	return db.client.Disconnect(ctx)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotFound
	}

	return err
}

// CreateUser inserts usr and sets its ID. models.ErrDuplicate is returned
// when another user already holds the Google ID.
func (db *MongoDB) CreateUser(ctx context.Context, usr *user.User) error {
	if usr.ID.IsZero() {
		usr.ID = primitive.NewObjectID()
	}
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = time.Now().UTC()
	}

	_, err := db.users.InsertOne(ctx, usr)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicate
	}

	return err
}

func (db *MongoDB) GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	var usr user.User
	if err := db.users.FindOne(ctx, bson.M{"_id": id}).Decode(&usr); err != nil {
		return nil, notFound(err)
	}

	return &usr, nil
}

func (db *MongoDB) FindUserByGoogleID(ctx context.Context, googleID string) (*user.User, error) {
	var usr user.User
	if err := db.users.FindOne(ctx, bson.M{"google_id": googleID}).Decode(&usr); err != nil {
		return nil, notFound(err)
	}

	return &usr, nil
}

func (db *MongoDB) CountUsers(ctx context.Context) (int64, error) {
	return db.users.CountDocuments(ctx, bson.D{})
}

func (db *MongoDB) CreateStory(ctx context.Context, story *models.Story) error {
	if story.ID.IsZero() {
		story.ID = primitive.NewObjectID()
	}

	_, err := db.stories.InsertOne(ctx, story)

	return err
}

func (db *MongoDB) GetStory(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	var story models.Story
	if err := db.stories.FindOne(ctx, bson.M{"_id": id}).Decode(&story); err != nil {
		return nil, notFound(err)
	}

	return &story, nil
}

func (db *MongoDB) UpdateStory(ctx context.Context, story *models.Story) error {
	result, err := db.stories.ReplaceOne(ctx, bson.M{"_id": story.ID}, story)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (db *MongoDB) DeleteStory(ctx context.Context, id primitive.ObjectID) error {
	result, err := db.stories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ListStoriesByUser returns the user's stories, newest first.
func (db *MongoDB) ListStoriesByUser(
	ctx context.Context,
	userID primitive.ObjectID,
	publicOnly bool,
) ([]models.Story, error) {
	filter := bson.M{"user": userID}
	if publicOnly {
		filter["status"] = models.StatusPublic
	}

	cursor, err := db.stories.Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}

	result := []models.Story{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// ListPublicStories returns public stories joined with their authors, newest
// first. A non-nil author restricts the list to that user's stories.
func (db *MongoDB) ListPublicStories(
	ctx context.Context,
	author *primitive.ObjectID,
) ([]models.PopulatedStory, error) {
	match := bson.M{"status": models.StatusPublic}
	if author != nil {
		match["user"] = *author
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "author"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}

	cursor, err := db.stories.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	result := []models.PopulatedStory{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (db *MongoDB) CountStories(ctx context.Context) (int64, error) {
	return db.stories.CountDocuments(ctx, bson.D{})
}

// SaveSession inserts or replaces the session with the same ID.
func (db *MongoDB) SaveSession(ctx context.Context, session *models.Session) error {
	_, err := db.sessions.ReplaceOne(
		ctx,
		bson.M{"_id": session.ID},
		session,
		options.Replace().SetUpsert(true),
	)

	return err
}

func (db *MongoDB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := db.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&session); err != nil {
		return nil, notFound(err)
	}

	return &session, nil
}

func (db *MongoDB) DeleteSession(ctx context.Context, id string) error {
	_, err := db.sessions.DeleteOne(ctx, bson.M{"_id": id})

	return err
}

// DeleteExpiredSessions removes sessions expired at now. The TTL index does
// the same lazily; this makes expiry exact for the sweeper.
func (db *MongoDB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}
