package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pinpoint-server/config"
)

// backends holds the connections shared by every workspace.
type backends struct {
	mongo *mongo.Client
	db    *mongo.Database
	redis *redis.Client
}

func connectBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		_ = rdb.Close()
		return nil, fmt.Errorf("ping Redis: %w", err)
	}

	return &backends{mongo: client, db: client.Database(cfg.MongoDatabase), redis: rdb}, nil
}

func (b *backends) Close(ctx context.Context) {
	_ = b.redis.Close()
	_ = b.mongo.Disconnect(ctx)
}
