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

const contactsCollection = "contacts"

type contactDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	Favorite  bool               `bson:"favorite"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d contactDocument) toContact() types.Contact {
	return types.Contact{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Favorite:  d.Favorite,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoContactRepository handles persistence for contacts in MongoDB.
type MongoContactRepository struct {
	coll *mongo.Collection
}

func NewMongoContactRepository(db *mongo.Database) *MongoContactRepository {
	return &MongoContactRepository{coll: db.Collection(contactsCollection)}
}

func (r *MongoContactRepository) List(ctx context.Context, filter types.ContactFilter, offset, limit int) ([]types.Contact, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	query := bson.M{}
	if filter.Favorite != nil {
		query["favorite"] = *filter.Favorite
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	contacts := make([]types.Contact, 0, limit)
	for cursor.Next(ctx) {
		var doc contactDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, doc.toContact())
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}

	return contacts, int(total), nil
}

func (r *MongoContactRepository) Get(ctx context.Context, id string) (types.Contact, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Contact{}, ErrNotFound
	}
	var doc contactDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Contact{}, ErrNotFound
		}
		return types.Contact{}, err
	}
	return doc.toContact(), nil
}

func (r *MongoContactRepository) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := contactDocument{
		ID:        primitive.NewObjectID(),
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Favorite:  contact.Favorite,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return types.Contact{}, err
	}
	return doc.toContact(), nil
}

func (r *MongoContactRepository) Update(ctx context.Context, contact types.Contact) (types.Contact, error) {
	return r.findAndSet(ctx, contact.ID, bson.M{
		"name":     contact.Name,
		"email":    contact.Email,
		"phone":    contact.Phone,
		"favorite": contact.Favorite,
	})
}

func (r *MongoContactRepository) UpdateFavorite(ctx context.Context, id string, favorite bool) (types.Contact, error) {
	return r.findAndSet(ctx, id, bson.M{"favorite": favorite})
}

func (r *MongoContactRepository) findAndSet(ctx context.Context, id string, fields bson.M) (types.Contact, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Contact{}, ErrNotFound
	}
	fields["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc contactDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Contact{}, ErrNotFound
		}
		return types.Contact{}, err
	}
	return doc.toContact(), nil
}

func (r *MongoContactRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
