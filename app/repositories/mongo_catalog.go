package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/pkg/metrics"
)

const (
	productsCollection = "products"
	countersCollection = "counters"
	productCounter     = "product_id"
)

// NewMongo builds stores on db. Close disconnects the client.
func NewMongo(db *mongo.Database) *Stores {
	catalog := &mongoCatalog{
		products: db.Collection(productsCollection),
		counters: db.Collection(countersCollection),
	}
	accounts := &mongoAccounts{users: db.Collection(usersCollection)}
	return &Stores{
		Driver:   "mongo",
		Catalog:  catalog,
		Accounts: accounts,
		Migrate: func(ctx context.Context) error {
			if err := catalog.ensureIndexes(ctx); err != nil {
				return err
			}
			if err := accounts.ensureIndexes(ctx); err != nil {
				return err
			}
			return catalog.syncCounter(ctx)
		},
		Close: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	}
}

type mongoCatalog struct {
	products *mongo.Collection
	counters *mongo.Collection

	mu     sync.Mutex
	synced bool
}

func (c *mongoCatalog) find(ctx context.Context, filter bson.M) ([]models.Product, error) {
	cur, err := c.products.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("repositories: find products: %w", err)
	}
	out := []models.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("repositories: decode products: %w", err)
	}
	return out, nil
}

func (c *mongoCatalog) All(ctx context.Context) ([]models.Product, error) {
	defer metrics.ObserveStore("mongo", "catalog_all", time.Now())
	return c.find(ctx, bson.M{})
}

func (c *mongoCatalog) ByCategory(ctx context.Context, category string) ([]models.Product, error) {
	defer metrics.ObserveStore("mongo", "catalog_by_category", time.Now())
	return c.find(ctx, bson.M{"category": category})
}

func (c *mongoCatalog) Insert(ctx context.Context, p models.Product) (models.Product, error) {
	defer metrics.ObserveStore("mongo", "catalog_insert", time.Now())

	if err := c.ensureSynced(ctx); err != nil {
		return models.Product{}, err
	}
	id, err := c.nextID(ctx)
	if err != nil {
		return models.Product{}, err
	}
	p.ID = id
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	if _, err := c.products.InsertOne(ctx, p); err != nil {
		return models.Product{}, fmt.Errorf("repositories: insert product: %w", err)
	}
	return p, nil
}

// nextID takes the next value from the counters collection with one $inc.
func (c *mongoCatalog) nextID(ctx context.Context) (int, error) {
	var doc struct {
		Seq int `bson:"seq"`
	}
	err := c.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": productCounter},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("repositories: next product id: %w", err)
	}
	return doc.Seq, nil
}

// syncCounter lifts the counter to the highest stored id so products that
// predate the counter are never shadowed.
func (c *mongoCatalog) syncCounter(ctx context.Context) error {
	var last models.Product
	err := c.products.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}})).Decode(&last)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("repositories: read last product: %w", err)
	}
	_, err = c.counters.UpdateOne(ctx,
		bson.M{"_id": productCounter},
		bson.M{"$max": bson.M{"seq": last.ID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("repositories: sync product counter: %w", err)
	}
	return nil
}

func (c *mongoCatalog) ensureSynced(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.synced {
		return nil
	}
	if err := c.syncCounter(ctx); err != nil {
		return err
	}
	c.synced = true
	return nil
}

func (c *mongoCatalog) ensureIndexes(ctx context.Context) error {
	_, err := c.products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("repositories: product indexes: %w", err)
	}
	return nil
}

func (c *mongoCatalog) RemoveByID(ctx context.Context, id int) error {
	defer metrics.ObserveStore("mongo", "catalog_remove", time.Now())
	if _, err := c.products.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("repositories: remove product %d: %w", id, err)
	}
	return nil
}

func (c *mongoCatalog) Exists(ctx context.Context, id int) (bool, error) {
	defer metrics.ObserveStore("mongo", "catalog_exists", time.Now())
	n, err := c.products.CountDocuments(ctx, bson.M{"id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("repositories: product %d exists: %w", id, err)
	}
	return n > 0, nil
}

func (c *mongoCatalog) ReplaceImagePrefix(ctx context.Context, from, to string) (int, error) {
	if from == "" {
		return 0, nil
	}
	cur, err := c.products.Find(ctx, bson.M{"image": bson.M{"$regex": regexp.QuoteMeta(from)}})
	if err != nil {
		return 0, fmt.Errorf("repositories: find images: %w", err)
	}
	var docs []struct {
		OID   primitive.ObjectID `bson:"_id"`
		Image string             `bson:"image"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return 0, fmt.Errorf("repositories: decode images: %w", err)
	}

	n := 0
	for _, d := range docs {
		image := strings.Replace(d.Image, from, to, 1)
		if _, err := c.products.UpdateOne(ctx, bson.M{"_id": d.OID}, bson.M{"$set": bson.M{"image": image}}); err != nil {
			return n, fmt.Errorf("repositories: update image: %w", err)
		}
		n++
	}
	return n, nil
}
