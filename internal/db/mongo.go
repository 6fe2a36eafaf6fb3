package db

import (
	"context"
	"errors"
	"strings"

	"github.com/contactsbook/apiserver/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// OpenMongo connects to MongoDB and returns the client with the configured database.
func OpenMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, nil, errors.New("mongo uri is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, nil, errors.New("mongo database is required")
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(defaultMaxOpenConns).
		SetMaxConnIdleTime(connMaxIdle))
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, client.Database(cfg.Database), nil
}
