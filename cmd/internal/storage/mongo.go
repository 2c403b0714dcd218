package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	mongoUsersCollection        = "users"
	mongoApplicationsCollection = "internship_applications"
)

// MongoStore implements Store over MongoDB.
//
// The client is owned by the caller; Close does not disconnect it.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	apps   *mongo.Collection
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	UsernameNorm string    `bson:"username_norm"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type applicationDoc struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	Email      string    `bson:"email"`
	Phone      string    `bson:"phone"`
	ResumePath string    `bson:"resume_path"`
	CreatedAt  time.Time `bson:"created_at"`
	Status     string    `bson:"status"`
}

// NewMongoStore binds collections in database and ensures indexes exist.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage: nil mongo client")
	}
	database = strings.TrimSpace(database)
	if database == "" {
		return nil, fmt.Errorf("storage: empty mongo database name")
	}

	db := client.Database(database)
	st := &MongoStore{
		client: client,
		users:  db.Collection(mongoUsersCollection),
		apps:   db.Collection(mongoApplicationsCollection),
	}
	if err := st.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username_norm", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_users_username_norm"),
	})
	if err != nil {
		return fmt.Errorf("storage: users index: %w", err)
	}

	_, err = s.apps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetName("ix_internship_applications_created_at"),
	})
	if err != nil {
		return fmt.Errorf("storage: applications index: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (s *MongoStore) GetUser(ctx context.Context, id string) (User, error) {
	const op = "storage.mongo.GetUser"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, invalid(op, "missing id")
	}
	return s.findUser(ctx, op, bson.D{{Key: "_id", Value: id}})
}

// GetUserByUsername fetches a user by normalized username.
func (s *MongoStore) GetUserByUsername(ctx context.Context, usernameNorm string) (User, error) {
	const op = "storage.mongo.GetUserByUsername"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	usernameNorm = NormalizeUsername(usernameNorm)
	if usernameNorm == "" {
		return User{}, invalid(op, "missing username")
	}
	return s.findUser(ctx, op, bson.D{{Key: "username_norm", Value: usernameNorm}})
}

func (s *MongoStore) findUser(ctx context.Context, op string, filter bson.D) (User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return User{
		ID:           doc.ID,
		Username:     doc.Username,
		UsernameNorm: doc.UsernameNorm,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}

// CreateUser inserts a user document.
func (s *MongoStore) CreateUser(ctx context.Context, u User) (User, error) {
	const op = "storage.mongo.CreateUser"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(u.ID) == "" || u.UsernameNorm == "" || u.PasswordHash == "" {
		return User{}, invalid(op, "incomplete user record")
	}

	_, err := s.users.InsertOne(ctx, userDoc{
		ID:           u.ID,
		Username:     u.Username,
		UsernameNorm: u.UsernameNorm,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			field := "id"
			if strings.Contains(err.Error(), "username") {
				field = "username"
			}
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

// CreateApplication inserts an application document.
func (s *MongoStore) CreateApplication(ctx context.Context, a Application) (Application, error) {
	const op = "storage.mongo.CreateApplication"
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	if strings.TrimSpace(a.ID) == "" || a.CreatedAt.IsZero() || !a.Status.Valid() {
		return Application{}, invalid(op, "incomplete application record")
	}

	_, err := s.apps.InsertOne(ctx, applicationDoc{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		ResumePath: a.ResumePath,
		CreatedAt:  a.CreatedAt,
		Status:     string(a.Status),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Application{}, ConflictError{Op: op, Field: "id"}
		}
		return Application{}, err
	}
	return a, nil
}

// ListApplications returns all applications ordered by creation time.
func (s *MongoStore) ListApplications(ctx context.Context) ([]Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cur, err := s.apps.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []applicationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]Application, 0, len(docs))
	for _, d := range docs {
		out = append(out, Application{
			ID:         d.ID,
			Name:       d.Name,
			Email:      d.Email,
			Phone:      d.Phone,
			ResumePath: d.ResumePath,
			CreatedAt:  d.CreatedAt.UTC(),
			Status:     Status(d.Status),
		})
	}
	return out, nil
}

// Ping checks primary reachability.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close is a no-op: the client is owned by the caller.
func (s *MongoStore) Close(_ context.Context) error { return nil }

// ConnectMongo dials uri and verifies the primary is reachable within timeout.
func ConnectMongo(parent context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
