package database

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bigkaa/workrecords/internal/config"
)

// ConnectMongo создаёт клиент MongoDB и проверяет доступность через ping.
// Возвращает клиент (закрывается вызывающим через Disconnect) и коллекцию записей.
func ConnectMongo(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mongo.Client, *mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка создания клиента MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
	}

	logger.Info("Подключение к MongoDB установлено",
		slog.String("database", cfg.MongoDatabase),
		slog.String("collection", cfg.MongoCollection),
	)

	coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
	return client, coll, nil
}

// MongoReadinessChecker — проверка готовности MongoDB для health endpoint.
type MongoReadinessChecker struct {
	client *mongo.Client
}

// NewMongoReadinessChecker создаёт проверку готовности MongoDB.
func NewMongoReadinessChecker(client *mongo.Client) *MongoReadinessChecker {
	return &MongoReadinessChecker{client: client}
}

// Name возвращает имя зависимости для ответа readiness probe.
func (c *MongoReadinessChecker) Name() string { return "mongodb" }

// CheckReady проверяет подключение к MongoDB через ping.
func (c *MongoReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return "fail", fmt.Sprintf("MongoDB недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
