package store

import (
	"context"
	"testing"
	"time"

	"github.com/contactsbook/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get by email decodes document", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		oid := primitive.NewObjectID()
		now := time.Now().UTC().Truncate(time.Millisecond)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "email", Value: "a@b.com"},
			{Key: "password", Value: "hash"},
			{Key: "token", Value: "tok"},
			{Key: "subscription", Value: types.SubscriptionStarter},
			{Key: "avatarURL", Value: "//avatar"},
			{Key: "verify", Value: false},
			{Key: "verificationToken", Value: nil},
			{Key: "createdAt", Value: now},
			{Key: "updatedAt", Value: now},
		}))

		user, err := repo.GetByEmail(context.Background(), "a@b.com")
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), user.ID)
		assert.Equal(mt, "hash", user.PasswordHash)
		require.NotNil(mt, user.Token)
		assert.Equal(mt, "tok", *user.Token)
		assert.Nil(mt, user.VerificationToken)
	})

	mt.Run("get by email not found", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))

		_, err := repo.GetByEmail(context.Background(), "nobody@b.com")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("get by malformed id", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)

		_, err := repo.GetByID(context.Background(), "zzz")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("create duplicate email", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		_, err := repo.Create(context.Background(), types.User{Email: "a@b.com"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("create assigns id", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user, err := repo.Create(context.Background(), types.User{Email: "a@b.com", PasswordHash: "hash"})
		require.NoError(mt, err)
		assert.True(mt, primitive.IsValidObjectID(user.ID))
		assert.Equal(mt, "hash", user.PasswordHash)
	})

	mt.Run("update token on missing user", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.UpdateToken(context.Background(), primitive.NewObjectID().Hex(), nil)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update token", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		token := "tok"
		assert.NoError(mt, repo.UpdateToken(context.Background(), primitive.NewObjectID().Hex(), &token))
	})
}

func TestMongoContactRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list counts and pages", func(mt *mtest.T) {
		repo := NewMongoContactRepository(mt.DB)
		oid := primitive.NewObjectID()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.contacts", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(5)}}),
			mtest.CreateCursorResponse(0, "test.contacts", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: oid},
				{Key: "name", Value: "Ann"},
				{Key: "email", Value: "ann@x.com"},
				{Key: "phone", Value: "111"},
				{Key: "favorite", Value: true},
			}),
		)

		items, total, err := repo.List(context.Background(), types.ContactFilter{}, 0, 1)
		require.NoError(mt, err)
		assert.Equal(mt, 5, total)
		require.Len(mt, items, 1)
		assert.Equal(mt, oid.Hex(), items[0].ID)
		assert.True(mt, items[0].Favorite)
	})

	mt.Run("update favorite returns document", func(mt *mtest.T) {
		repo := NewMongoContactRepository(mt.DB)
		oid := primitive.NewObjectID()

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid},
			{Key: "name", Value: "Ann"},
			{Key: "favorite", Value: true},
		}}))

		contact, err := repo.UpdateFavorite(context.Background(), oid.Hex(), true)
		require.NoError(mt, err)
		assert.Equal(mt, "Ann", contact.Name)
		assert.True(mt, contact.Favorite)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := NewMongoContactRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}
