package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/query"
)

// recordDocument — представление записи в коллекции MongoDB.
// Имена полей совпадают с JSON API, что позволяет работать
// с коллекцией, заполненной другими клиентами.
type recordDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	BillAmount  float64            `bson:"billAmount"`
	ImageURLs   []string           `bson:"imageUrls"`
	PublicIDs   []string           `bson:"cloudinaryPublicIds"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *recordDocument) toModel() *model.WorkRecord {
	return &model.WorkRecord{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		BillAmount:  d.BillAmount,
		ImageURLs:   nonNil(d.ImageURLs),
		PublicIDs:   nonNil(d.PublicIDs),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// statsDocument — результат агрегации $group.
type statsDocument struct {
	Count int64   `bson:"count"`
	Sum   float64 `bson:"sum"`
	Avg   float64 `bson:"avg"`
	Max   float64 `bson:"max"`
	Min   float64 `bson:"min"`
}

// mongoRecordRepo — реализация RecordRepository через mongo-driver.
type mongoRecordRepo struct {
	coll *mongo.Collection
}

// NewMongoRecordRepository создаёт репозиторий записей MongoDB.
func NewMongoRecordRepository(coll *mongo.Collection) RecordRepository {
	return &mongoRecordRepo{coll: coll}
}

// EnsureMongoIndexes создаёт индексы коллекции записей (идемпотентно).
func EnsureMongoIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "billAmount", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("ошибка создания индексов: %w", err)
	}
	return nil
}

func (r *mongoRecordRepo) Insert(ctx context.Context, record *model.WorkRecord) (*model.WorkRecord, error) {
	now := time.Now().UTC()
	doc := recordDocument{
		ID:          primitive.NewObjectID(),
		Title:       record.Title,
		Description: record.Description,
		BillAmount:  record.BillAmount,
		ImageURLs:   nonNil(record.ImageURLs),
		PublicIDs:   nonNil(record.PublicIDs),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	// MongoDB хранит время с точностью до миллисекунд
	doc.CreatedAt = doc.CreatedAt.Truncate(time.Millisecond)
	doc.UpdatedAt = doc.UpdatedAt.Truncate(time.Millisecond)

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("ошибка создания записи: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoRecordRepo) Find(ctx context.Context, spec query.Spec) ([]*model.WorkRecord, error) {
	direction := 1
	if spec.Sort.Desc {
		direction = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: spec.Sort.Field, Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(int64(spec.Skip)).
		SetLimit(int64(spec.Limit))

	cur, err := r.coll.Find(ctx, buildFilter(spec), opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска записей: %w", err)
	}
	defer cur.Close(ctx)

	result := make([]*model.WorkRecord, 0, spec.Limit)
	for cur.Next(ctx) {
		var doc recordDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("ошибка декодирования записи: %w", err)
		}
		result = append(result, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

func (r *mongoRecordRepo) Count(ctx context.Context, spec query.Spec) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, buildFilter(spec))
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}
	return n, nil
}

func (r *mongoRecordRepo) GetByID(ctx context.Context, id string) (*model.WorkRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc recordDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoRecordRepo) Update(ctx context.Context, id string, update model.RecordUpdate) (*model.WorkRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.BillAmount != nil {
		set["billAmount"] = *update.BillAmount
	}
	if update.Images != nil {
		urls, publicIDs := splitImages(update.Images)
		set["imageUrls"] = urls
		set["cloudinaryPublicIds"] = publicIDs
	}
	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set["updatedAt"] = updatedAt.Truncate(time.Millisecond)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc recordDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления записи: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoRecordRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats вычисляет агрегаты одним $group. Пустая коллекция даёт нулевые значения.
func (r *mongoRecordRepo) Stats(ctx context.Context) (*model.Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "sum", Value: bson.D{{Key: "$sum", Value: "$billAmount"}}},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$billAmount"}}},
			{Key: "max", Value: bson.D{{Key: "$max", Value: "$billAmount"}}},
			{Key: "min", Value: bson.D{{Key: "$min", Value: "$billAmount"}}},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("ошибка вычисления статистики: %w", err)
	}
	defer cur.Close(ctx)

	stats := &model.Stats{}
	if cur.Next(ctx) {
		var doc statsDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("ошибка декодирования статистики: %w", err)
		}
		stats.TotalRecords = doc.Count
		stats.TotalBillAmount = doc.Sum
		stats.AverageBillAmount = doc.Avg
		stats.MaxBillAmount = doc.Max
		stats.MinBillAmount = doc.Min
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения статистики: %w", err)
	}
	return stats, nil
}

// buildFilter транслирует спецификацию запроса в фильтр MongoDB.
func buildFilter(spec query.Spec) bson.M {
	filter := bson.M{}

	if spec.Search != "" {
		// QuoteMeta: пользовательская строка — подстрока, а не регулярное выражение
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(spec.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	if spec.CreatedFrom != nil || spec.CreatedTo != nil {
		created := bson.M{}
		if spec.CreatedFrom != nil {
			created["$gte"] = *spec.CreatedFrom
		}
		if spec.CreatedTo != nil {
			created["$lte"] = *spec.CreatedTo
		}
		filter["createdAt"] = created
	}

	if spec.MinAmount != nil || spec.MaxAmount != nil {
		amount := bson.M{}
		if spec.MinAmount != nil {
			amount["$gte"] = *spec.MinAmount
		}
		if spec.MaxAmount != nil {
			amount["$lte"] = *spec.MaxAmount
		}
		filter["billAmount"] = amount
	}

	return filter
}
