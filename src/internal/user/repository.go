package user

import (
	"context"
	"errors"
	"presence-svc/src/clients"
	"presence-svc/src/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	FindAll(ctx context.Context) ([]*User, error)
	FindByID(ctx context.Context, userID string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Save(ctx context.Context, user *User) error
	SetOnline(ctx context.Context, userID string, online bool, lastLogin *time.Time) error
	Delete(ctx context.Context, userID string) error
	DeleteAll(ctx context.Context) error
}

type userRepository struct {
	Collection *mongo.Collection
}

func NewUserRepository(mongoClient *clients.MongoDB, collectionName string) Repository {
	collection := mongoClient.Database.Collection(collectionName)
	return &userRepository{
		Collection: collection,
	}
}

// EnsureIndexes creates the unique user_id and username indexes
func EnsureIndexes(ctx context.Context, mongoClient *clients.MongoDB, collectionName string) error {
	collection := mongoClient.Database.Collection(collectionName)
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to create user indexes")
		return models.ErrDatabaseQuery
	}
	return nil
}

func (r *userRepository) FindAll(ctx context.Context) ([]*User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})

	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find users")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	users := make([]*User, 0)
	for cursor.Next(ctx) {
		var user User
		if err := cursor.Decode(&user); err != nil {
			logrus.WithError(err).Error("Failed to decode user")
			continue
		}
		users = append(users, &user)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, models.ErrDatabaseQuery
	}

	logrus.WithField("count", len(users)).Debug("Retrieved users successfully")
	return users, nil
}

func (r *userRepository) FindByID(ctx context.Context, userID string) (*User, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	err := r.Collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		logrus.WithError(err).WithField("filter", filter).Error("Failed to get user")
		return nil, models.ErrDatabaseQuery
	}
	return &user, nil
}

func (r *userRepository) Save(ctx context.Context, user *User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	filter := bson.M{"user_id": user.UserID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.Collection.ReplaceOne(ctx, filter, user, opts); err != nil {
		logrus.WithError(err).WithField("user_id", user.UserID).Error("Failed to save user")
		return models.ErrDatabaseUpdate
	}
	return nil
}

func (r *userRepository) SetOnline(ctx context.Context, userID string, online bool, lastLogin *time.Time) error {
	set := bson.M{
		"is_online":  online,
		"updated_at": time.Now().UTC(),
	}
	if lastLogin != nil {
		set["last_login"] = *lastLogin
	}

	result, err := r.Collection.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": set})
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to update user online flag")
		return models.ErrDatabaseUpdate
	}
	if result.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.Collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to delete user")
		return models.ErrDatabaseDelete
	}
	if result.DeletedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) DeleteAll(ctx context.Context) error {
	result, err := r.Collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		logrus.WithError(err).Error("Failed to clear users")
		return models.ErrDatabaseDelete
	}
	logrus.WithField("deleted", result.DeletedCount).Info("User roster cleared")
	return nil
}
