package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/pkg/metrics"
	"github.com/modera-shop/modera/pkg/migration"
)

// NewSQL builds stores on a gorm database. Migrate runs the registered
// schema migrations, then syncs the product counter.
func NewSQL(db *gorm.DB) *Stores {
	catalog := &sqlCatalog{db: db}
	return &Stores{
		Driver:   "sql",
		Catalog:  catalog,
		Accounts: &sqlAccounts{db: db},
		Migrate: func(ctx context.Context) error {
			if err := migration.New(db.WithContext(ctx)).Run(); err != nil {
				return err
			}
			return catalog.syncCounter(ctx)
		},
		Close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

type sqlCatalog struct {
	db *gorm.DB
}

func (c *sqlCatalog) All(ctx context.Context) ([]models.Product, error) {
	defer metrics.ObserveStore("sql", "catalog_all", time.Now())
	out := []models.Product{}
	if err := c.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("repositories: list products: %w", err)
	}
	return out, nil
}

func (c *sqlCatalog) ByCategory(ctx context.Context, category string) ([]models.Product, error) {
	defer metrics.ObserveStore("sql", "catalog_by_category", time.Now())
	out := []models.Product{}
	if err := c.db.WithContext(ctx).Where("category = ?", category).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("repositories: list category %q: %w", category, err)
	}
	return out, nil
}

func (c *sqlCatalog) Insert(ctx context.Context, p models.Product) (models.Product, error) {
	defer metrics.ObserveStore("sql", "catalog_insert", time.Now())
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextCounter(tx, productCounter)
		if err != nil {
			return err
		}
		p.ID = id
		return tx.Create(&p).Error
	})
	if err != nil {
		return models.Product{}, fmt.Errorf("repositories: insert product: %w", err)
	}
	return p, nil
}

// nextCounter bumps the named counter in place and reads it back inside the
// caller's transaction. A missing counter starts after the highest product id.
func nextCounter(tx *gorm.DB, name string) (int, error) {
	res := tx.Model(&models.Counter{}).Where("name = ?", name).Update("value", gorm.Expr("value + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var maxID int
		if err := tx.Model(&models.Product{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return 0, err
		}
		if err := tx.Create(&models.Counter{Name: name, Value: maxID + 1}).Error; err != nil {
			return 0, err
		}
		return maxID + 1, nil
	}
	var counter models.Counter
	if err := tx.First(&counter, "name = ?", name).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (c *sqlCatalog) syncCounter(ctx context.Context) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID int
		if err := tx.Model(&models.Product{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return fmt.Errorf("repositories: read last product: %w", err)
		}
		res := tx.Model(&models.Counter{}).Where("name = ? AND value < ?", productCounter, maxID).Update("value", maxID)
		if res.Error != nil {
			return fmt.Errorf("repositories: sync product counter: %w", res.Error)
		}
		var n int64
		if err := tx.Model(&models.Counter{}).Where("name = ?", productCounter).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return tx.Create(&models.Counter{Name: productCounter, Value: maxID}).Error
		}
		return nil
	})
}

func (c *sqlCatalog) RemoveByID(ctx context.Context, id int) error {
	defer metrics.ObserveStore("sql", "catalog_remove", time.Now())
	if err := c.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("repositories: remove product %d: %w", id, err)
	}
	return nil
}

func (c *sqlCatalog) Exists(ctx context.Context, id int) (bool, error) {
	defer metrics.ObserveStore("sql", "catalog_exists", time.Now())
	var n int64
	if err := c.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("repositories: product %d exists: %w", id, err)
	}
	return n > 0, nil
}

func (c *sqlCatalog) ReplaceImagePrefix(ctx context.Context, from, to string) (int, error) {
	if from == "" {
		return 0, nil
	}
	var products []models.Product
	if err := c.db.WithContext(ctx).Where("image LIKE ?", "%"+escapeLike(from)+"%").Find(&products).Error; err != nil {
		return 0, fmt.Errorf("repositories: find images: %w", err)
	}
	n := 0
	for _, p := range products {
		if !strings.Contains(p.Image, from) {
			continue
		}
		image := strings.Replace(p.Image, from, to, 1)
		if err := c.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Update("image", image).Error; err != nil {
			return n, fmt.Errorf("repositories: update image: %w", err)
		}
		n++
	}
	return n, nil
}

// escapeLike drops the LIKE wildcards; the Contains check above filters
// any extra matches.
func escapeLike(s string) string {
	return strings.NewReplacer("%", "_", "\\", "_").Replace(s)
}

type sqlAccounts struct {
	db *gorm.DB
}

func (a *sqlAccounts) find(ctx context.Context, query string, arg any) (models.User, error) {
	var u models.User
	err := a.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("repositories: find user: %w", err)
	}
	cart, err := readCart(a.db.WithContext(ctx), u.ID)
	if err != nil {
		return models.User{}, err
	}
	u.CartData = cart
	return u, nil
}

func (a *sqlAccounts) FindByEmail(ctx context.Context, email string) (models.User, error) {
	defer metrics.ObserveStore("sql", "account_by_email", time.Now())
	return a.find(ctx, "email = ?", email)
}

func (a *sqlAccounts) FindByID(ctx context.Context, id string) (models.User, error) {
	defer metrics.ObserveStore("sql", "account_by_id", time.Now())
	return a.find(ctx, "id = ?", id)
}

func (a *sqlAccounts) Create(ctx context.Context, u models.User) (models.User, error) {
	defer metrics.ObserveStore("sql", "account_create", time.Now())

	var n int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
		return models.User{}, fmt.Errorf("repositories: check email: %w", err)
	}
	if n > 0 {
		return models.User{}, ErrDuplicateEmail
	}

	u.ID = primitive.NewObjectID().Hex()
	u.CartData = models.Cart{}
	if u.Date.IsZero() {
		u.Date = time.Now().UTC()
	}
	if err := a.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("repositories: insert user: %w", err)
	}
	return u, nil
}

func (a *sqlAccounts) GetCart(ctx context.Context, id string) (models.Cart, error) {
	defer metrics.ObserveStore("sql", "cart_get", time.Now())
	db := a.db.WithContext(ctx)
	if err := userExists(db, id); err != nil {
		return nil, err
	}
	return readCart(db, id)
}

func (a *sqlAccounts) SetCart(ctx context.Context, id string, cart models.Cart) error {
	defer metrics.ObserveStore("sql", "cart_set", time.Now())
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, id); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("repositories: clear cart: %w", err)
		}
		rows := make([]models.CartItem, 0, len(cart))
		for item, qty := range cart.Clone() {
			rows = append(rows, models.CartItem{UserID: id, ProductID: item, Qty: qty})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("repositories: write cart: %w", err)
		}
		return nil
	})
}

func (a *sqlAccounts) AdjustCart(ctx context.Context, id string, cmd CartCommand) (CartResult, error) {
	defer metrics.ObserveStore("sql", "cart_adjust", time.Now())
	if err := cmd.validate(); err != nil {
		return CartResult{}, err
	}

	var result CartResult
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, id); err != nil {
			return err
		}
		if cmd.ClientID != "" {
			ok, err := advanceClock(tx, id, cmd.ClientID, cmd.Seq)
			if err != nil {
				return err
			}
			if !ok {
				cart, err := readCart(tx, id)
				result = CartResult{Cart: cart}
				return err
			}
		}

		if cmd.Delta > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"qty": gorm.Expr("cart_items.qty + 1")}),
			}).Create(&models.CartItem{UserID: id, ProductID: cmd.ItemID, Qty: 1}).Error
			if err != nil {
				return fmt.Errorf("repositories: increment: %w", err)
			}
		} else {
			err := tx.Model(&models.CartItem{}).
				Where("user_id = ? AND product_id = ? AND qty > 0", id, cmd.ItemID).
				Update("qty", gorm.Expr("qty - ?", 1)).Error
			if err != nil {
				return fmt.Errorf("repositories: decrement: %w", err)
			}
		}

		cart, err := readCart(tx, id)
		result = CartResult{Cart: cart, Applied: true}
		return err
	})
	if err != nil {
		return CartResult{}, err
	}
	return result, nil
}

// advanceClock moves the client's sequence forward. It reports false when
// seq is not newer than the recorded one.
func advanceClock(tx *gorm.DB, userID, clientID string, seq int64) (bool, error) {
	res := tx.Model(&models.CartClock{}).
		Where("user_id = ? AND client_id = ? AND seq < ?", userID, clientID, seq).
		Update("seq", seq)
	if res.Error != nil {
		return false, fmt.Errorf("repositories: cart clock: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var n int64
	if err := tx.Model(&models.CartClock{}).Where("user_id = ? AND client_id = ?", userID, clientID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("repositories: cart clock: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := tx.Create(&models.CartClock{UserID: userID, ClientID: clientID, Seq: seq}).Error; err != nil {
		return false, fmt.Errorf("repositories: cart clock: %w", err)
	}
	return true, nil
}

func userExists(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("repositories: find user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func readCart(db *gorm.DB, id string) (models.Cart, error) {
	var rows []models.CartItem
	if err := db.Where("user_id = ? AND qty > 0", id).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("repositories: read cart: %w", err)
	}
	cart := make(models.Cart, len(rows))
	for _, r := range rows {
		if _, err := strconv.Atoi(r.ProductID); err == nil {
			cart[r.ProductID] = r.Qty
		}
	}
	return cart, nil
}
