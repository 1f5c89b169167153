// Package repositories persists the catalog and accounts. Each backend
// (MongoDB, a gorm SQL database, or memory for tests) provides a
// CatalogStore and an AccountStore with the same semantics:
//
//   - product ids come from an atomic counter and are never reused
//   - a cart increment is a single atomic update
//   - a cart decrement only applies while the quantity is above zero
//   - a cart command carrying (clientID, seq) is discarded when seq is not
//     newer than the last one applied for that client
package repositories

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"github.com/modera-shop/modera/app/models"
)

var (
	ErrNotFound       = errors.New("repositories: not found")
	ErrDuplicateEmail = errors.New("repositories: email already registered")
	ErrInvalidCommand = errors.New("repositories: invalid cart command")
)

type CatalogStore interface {
	// All returns every product in insertion order.
	All(ctx context.Context) ([]models.Product, error)
	ByCategory(ctx context.Context, category string) ([]models.Product, error)
	// Insert assigns the next id and the creation date and stores p.
	Insert(ctx context.Context, p models.Product) (models.Product, error)
	// RemoveByID deletes the product with id. Removing a missing id is not
	// an error.
	RemoveByID(ctx context.Context, id int) error
	Exists(ctx context.Context, id int) (bool, error)
	// ReplaceImagePrefix rewrites image URLs containing from, replacing its
	// first occurrence with to. It returns the number of products changed.
	ReplaceImagePrefix(ctx context.Context, from, to string) (int, error)
}

type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	// Create assigns the id and date. The cart starts empty.
	Create(ctx context.Context, u models.User) (models.User, error)
	GetCart(ctx context.Context, id string) (models.Cart, error)
	// SetCart replaces the whole cart.
	SetCart(ctx context.Context, id string, cart models.Cart) error
	AdjustCart(ctx context.Context, id string, cmd CartCommand) (CartResult, error)
}

// CartCommand changes one cart entry by Delta (+1 or -1). ClientID and Seq
// are optional; when ClientID is set the command is applied at most once.
type CartCommand struct {
	ItemID   string
	Delta    int
	ClientID string
	Seq      int64
}

type CartResult struct {
	Cart    models.Cart
	Applied bool
}

// Stores bundles one backend.
type Stores struct {
	Driver   string
	Catalog  CatalogStore
	Accounts AccountStore
	// Migrate creates indexes or tables and lifts the product counter to
	// the highest stored id.
	Migrate func(ctx context.Context) error
	Close   func(ctx context.Context) error
}

// validItem guards keys used as document field paths.
func validItem(id string) bool {
	n, err := strconv.Atoi(id)
	return err == nil && n > 0 && strconv.Itoa(n) == id
}

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func (c CartCommand) validate() error {
	if !validItem(c.ItemID) || (c.Delta != 1 && c.Delta != -1) {
		return ErrInvalidCommand
	}
	if c.ClientID != "" && (!clientIDPattern.MatchString(c.ClientID) || c.Seq <= 0) {
		return ErrInvalidCommand
	}
	return nil
}

// fresh reports whether a command with seq is newer than the last applied.
func fresh(last int64, seen bool, seq int64) bool {
	return !seen || seq > last
}
