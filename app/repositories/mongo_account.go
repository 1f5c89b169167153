package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/pkg/metrics"
)

const usersCollection = "users"

// userDoc is the stored account. cartClock holds the last applied command
// sequence per client id.
type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	CartData  map[string]int     `bson:"cartData"`
	CartClock map[string]int64   `bson:"cartClock,omitempty"`
	Date      time.Time          `bson:"date"`
}

func (d userDoc) model() models.User {
	return models.User{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		Email:    d.Email,
		Password: d.Password,
		CartData: models.Cart(d.CartData).Clone(),
		Date:     d.Date,
	}
}

var cartProjection = bson.M{"cartData": 1}

type mongoAccounts struct {
	users *mongo.Collection
}

func (a *mongoAccounts) ensureIndexes(ctx context.Context) error {
	_, err := a.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("repositories: user indexes: %w", err)
	}
	return nil
}

func (a *mongoAccounts) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (userDoc, error) {
	var doc userDoc
	err := a.users.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("repositories: find user: %w", err)
	}
	return doc, nil
}

func (a *mongoAccounts) FindByEmail(ctx context.Context, email string) (models.User, error) {
	defer metrics.ObserveStore("mongo", "account_by_email", time.Now())
	doc, err := a.findOne(ctx, bson.M{"email": email})
	if err != nil {
		return models.User{}, err
	}
	return doc.model(), nil
}

func (a *mongoAccounts) FindByID(ctx context.Context, id string) (models.User, error) {
	defer metrics.ObserveStore("mongo", "account_by_id", time.Now())
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrNotFound
	}
	doc, err := a.findOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return models.User{}, err
	}
	return doc.model(), nil
}

func (a *mongoAccounts) Create(ctx context.Context, u models.User) (models.User, error) {
	defer metrics.ObserveStore("mongo", "account_create", time.Now())

	if _, err := a.findOne(ctx, bson.M{"email": u.Email}); err == nil {
		return models.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	doc := userDoc{
		ID:       primitive.NewObjectID(),
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
		CartData: map[string]int{},
		Date:     u.Date,
	}
	if doc.Date.IsZero() {
		doc.Date = time.Now().UTC()
	}
	if _, err := a.users.InsertOne(ctx, doc); err != nil {
		// the unique index catches a concurrent signup that passed the check
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("repositories: insert user: %w", err)
	}
	return doc.model(), nil
}

func (a *mongoAccounts) GetCart(ctx context.Context, id string) (models.Cart, error) {
	defer metrics.ObserveStore("mongo", "cart_get", time.Now())
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	doc, err := a.findOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(cartProjection))
	if err != nil {
		return nil, err
	}
	return models.Cart(doc.CartData).Clone(), nil
}

func (a *mongoAccounts) SetCart(ctx context.Context, id string, cart models.Cart) error {
	defer metrics.ObserveStore("mongo", "cart_set", time.Now())
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := a.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"cartData": map[string]int(cart.Clone())}})
	if err != nil {
		return fmt.Errorf("repositories: set cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustCart applies the command with a single conditional update. A miss
// means the account is unknown, the command is stale, or a decrement found
// nothing to remove; the follow-up reads tell these apart.
func (a *mongoAccounts) AdjustCart(ctx context.Context, id string, cmd CartCommand) (CartResult, error) {
	defer metrics.ObserveStore("mongo", "cart_adjust", time.Now())

	if err := cmd.validate(); err != nil {
		return CartResult{}, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return CartResult{}, ErrNotFound
	}

	field := "cartData." + cmd.ItemID
	filter := bson.M{"_id": oid}
	update := bson.M{"$inc": bson.M{field: cmd.Delta}}
	if cmd.ClientID != "" {
		clock := "cartClock." + cmd.ClientID
		filter["$or"] = bson.A{
			bson.M{clock: bson.M{"$exists": false}},
			bson.M{clock: bson.M{"$lt": cmd.Seq}},
		}
		update["$set"] = bson.M{clock: cmd.Seq}
	}
	if cmd.Delta < 0 {
		filter[field] = bson.M{"$gt": 0}
	}

	after := options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(cartProjection)
	var doc userDoc
	err = a.users.FindOneAndUpdate(ctx, filter, update, after).Decode(&doc)
	if err == nil {
		return CartResult{Cart: models.Cart(doc.CartData).Clone(), Applied: true}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return CartResult{}, fmt.Errorf("repositories: adjust cart: %w", err)
	}

	if cmd.Delta < 0 {
		// nothing to remove; still record the command as seen
		delete(filter, field)
		if set, ok := update["$set"]; ok {
			err = a.users.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, after).Decode(&doc)
			if err == nil {
				return CartResult{Cart: models.Cart(doc.CartData).Clone(), Applied: true}, nil
			}
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return CartResult{}, fmt.Errorf("repositories: adjust cart clock: %w", err)
			}
		}
	}

	cart, err := a.GetCart(ctx, id)
	if err != nil {
		return CartResult{}, err
	}
	return CartResult{Cart: cart, Applied: cmd.Delta < 0 && cmd.ClientID == ""}, nil
}
