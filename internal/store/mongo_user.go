package store

import (
	"context"
	"errors"
	"time"

	"github.com/contactsbook/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type userDocument struct {
	ID                primitive.ObjectID `bson:"_id"`
	Email             string             `bson:"email"`
	Password          string             `bson:"password"`
	Token             *string            `bson:"token"`
	Subscription      string             `bson:"subscription"`
	AvatarURL         string             `bson:"avatarURL"`
	Verify            bool               `bson:"verify"`
	VerificationToken *string            `bson:"verificationToken"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

func (d userDocument) toUser() types.User {
	return types.User{
		ID:                d.ID.Hex(),
		Email:             d.Email,
		PasswordHash:      d.Password,
		Token:             d.Token,
		Subscription:      d.Subscription,
		AvatarURL:         d.AvatarURL,
		Verify:            d.Verify,
		VerificationToken: d.VerificationToken,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// MongoUserRepository handles persistence for users in MongoDB.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index and the verification token lookup index.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "verificationToken", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	return err
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByVerificationToken(ctx context.Context, token string) (types.User, error) {
	return r.findOne(ctx, bson.M{"verificationToken": token})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		ID:                primitive.NewObjectID(),
		Email:             user.Email,
		Password:          user.PasswordHash,
		Token:             user.Token,
		Subscription:      user.Subscription,
		AvatarURL:         user.AvatarURL,
		Verify:            user.Verify,
		VerificationToken: user.VerificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

// UpdateToken sets or, with a nil token, clears the session token of a user.
func (r *MongoUserRepository) UpdateToken(ctx context.Context, id string, token *string) error {
	return r.set(ctx, id, bson.M{"token": token})
}

func (r *MongoUserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return r.set(ctx, id, bson.M{"avatarURL": avatarURL})
}

func (r *MongoUserRepository) UpdateSubscription(ctx context.Context, id, subscription string) error {
	return r.set(ctx, id, bson.M{"subscription": subscription})
}

// MarkVerified flags the user's email as confirmed and drops the verification token.
func (r *MongoUserRepository) MarkVerified(ctx context.Context, id string) error {
	return r.set(ctx, id, bson.M{"verify": true, "verificationToken": nil})
}

func (r *MongoUserRepository) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	fields["updatedAt"] = time.Now().UTC()

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
