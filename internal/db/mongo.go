package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"infobox_scraper/internal/config"
	"infobox_scraper/internal/models"
	"infobox_scraper/internal/persist"
	"infobox_scraper/internal/record"
)

type MongoDB struct {
	client    *mongo.Client
	database  *mongo.Database
	documents *mongo.Collection
	records   *mongo.Collection
}

func NewMongoDB(ctx context.Context, cfg config.DBConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	d := &MongoDB{
		client:    client,
		database:  db,
		documents: db.Collection(cfg.Collections.Documents),
		records:   db.Collection(cfg.Collections.Records),
	}

	if err := d.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't create indices: %w", err)
	}

	return d, nil
}

func (d *MongoDB) createIndexes(ctx context.Context) error {
	_, err := d.documents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "normalized_url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "last_scraped", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = d.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: record.KeyWikiLink, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// GetDocument returns the cached page for normalizedURL, or nil when there is
// none.
func (d *MongoDB) GetDocument(ctx context.Context, normalizedURL string) (*models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc models.Document
	err := d.documents.FindOne(ctx, bson.M{"normalized_url": normalizedURL}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveDocument upserts a cached page. first_scraped is only written on insert
// and scraped_count is incremented on every save.
func (d *MongoDB) SaveDocument(ctx context.Context, doc *models.Document) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var set bson.M
	if err := bson.Unmarshal(data, &set); err != nil {
		return err
	}
	delete(set, "scraped_count")
	delete(set, "first_scraped")

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"first_scraped": doc.FirstScraped},
		"$inc":         bson.M{"scraped_count": 1},
	}

	_, err = d.documents.UpdateOne(ctx, bson.M{"normalized_url": doc.NormalizedURL}, update, options.Update().SetUpsert(true))
	return err
}

// SaveRecords replaces or inserts every record keyed by its wiki_link.
// Records without a link are skipped.
func (d *MongoDB) SaveRecords(ctx context.Context, records []*record.Record) (int, error) {
	writes := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		link := rec.WikiLink()
		if link == "" {
			continue
		}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{record.KeyWikiLink: link}).
			SetReplacement(persist.RecordDocument(rec)).
			SetUpsert(true))
	}
	if len(writes) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := d.records.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("save records: %w", err)
	}
	return int(res.UpsertedCount + res.MatchedCount), nil
}

// RecordStats summarizes the records collection.
type RecordStats struct {
	Total         int     `bson:"total_records"`
	WithBudget    int     `bson:"with_budget"`
	WithBoxOffice int     `bson:"with_box_office"`
	AvgBudget     float64 `bson:"avg_budget"`
	MaxBoxOffice  float64 `bson:"max_box_office"`
}

// Field names such as "Budget (US$)" are read through $getField since they
// are not valid field paths.
func recordStatsPipeline(budgetField, boxOfficeField string) mongo.Pipeline {
	get := func(field string) bson.D {
		return bson.D{{Key: "$getField", Value: field}}
	}
	present := func(field string) bson.D {
		return bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: get(field)}}, "double"}}}, 1, 0,
		}}}
	}
	return mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_records", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "with_budget", Value: bson.D{{Key: "$sum", Value: present(budgetField)}}},
			{Key: "with_box_office", Value: bson.D{{Key: "$sum", Value: present(boxOfficeField)}}},
			{Key: "avg_budget", Value: bson.D{{Key: "$avg", Value: get(budgetField)}}},
			{Key: "max_box_office", Value: bson.D{{Key: "$max", Value: get(boxOfficeField)}}},
		}}},
	}
}

func (d *MongoDB) GetRecordStats(ctx context.Context, budgetField, boxOfficeField string) (RecordStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := d.records.Aggregate(ctx, recordStatsPipeline(budgetField, boxOfficeField))
	if err != nil {
		return RecordStats{}, err
	}
	defer cursor.Close(ctx)

	var results []RecordStats
	if err := cursor.All(ctx, &results); err != nil {
		return RecordStats{}, err
	}
	if len(results) == 0 {
		return RecordStats{}, nil
	}
	return results[0], nil
}

func (d *MongoDB) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}
