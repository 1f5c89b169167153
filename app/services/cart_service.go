package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/app/repositories"
	"github.com/modera-shop/modera/pkg/event"
	"github.com/modera-shop/modera/pkg/logger"
	"github.com/modera-shop/modera/pkg/metrics"
)

type CartService struct {
	accounts repositories.AccountStore
	catalog  repositories.CatalogStore
	events   *event.Bus
}

func NewCartService(accounts repositories.AccountStore, catalog repositories.CatalogStore, events *event.Bus) *CartService {
	return &CartService{accounts: accounts, catalog: catalog, events: events}
}

// CartCommand is one increment or decrement from a client. ClientID and Seq
// are optional and make the command idempotent.
type CartCommand struct {
	ItemID   string
	ClientID string
	Seq      int64
}

type CartResult struct {
	Cart    models.Cart
	Applied bool
}

// Get returns the account's cart without zero entries.
func (s *CartService) Get(ctx context.Context, accountID string) (models.Cart, error) {
	cart, err := s.accounts.GetCart(ctx, accountID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnknownAccount
	}
	if err != nil {
		return nil, storageError("get cart", err)
	}
	return cart, nil
}

// Increment adds one of an existing product.
func (s *CartService) Increment(ctx context.Context, accountID string, cmd CartCommand) (CartResult, error) {
	id, err := strconv.Atoi(cmd.ItemID)
	if err != nil || id <= 0 {
		return CartResult{}, ErrInvalidItem
	}
	ok, err := s.catalog.Exists(ctx, id)
	if err != nil {
		return CartResult{}, storageError("product exists", err)
	}
	if !ok {
		return CartResult{}, ErrProductNotFound
	}
	return s.adjust(ctx, accountID, cmd, 1, "increment")
}

// Decrement removes one; at zero it is a no-op that still returns the cart.
func (s *CartService) Decrement(ctx context.Context, accountID string, cmd CartCommand) (CartResult, error) {
	return s.adjust(ctx, accountID, cmd, -1, "decrement")
}

func (s *CartService) adjust(ctx context.Context, accountID string, cmd CartCommand, delta int, op string) (CartResult, error) {
	res, err := s.accounts.AdjustCart(ctx, accountID, repositories.CartCommand{
		ItemID:   cmd.ItemID,
		Delta:    delta,
		ClientID: cmd.ClientID,
		Seq:      cmd.Seq,
	})
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return CartResult{}, ErrUnknownAccount
	case errors.Is(err, repositories.ErrInvalidCommand):
		return CartResult{}, ErrInvalidItem
	case err != nil:
		return CartResult{}, storageError(op, err)
	}

	metrics.RecordCartMutation(op, res.Applied)
	log := logger.WithCtx(ctx)
	if !res.Applied {
		log.Debug("cart: stale command discarded", "account", accountID, "client", cmd.ClientID, "seq", cmd.Seq)
		return CartResult{Cart: res.Cart}, nil
	}

	log.Info("cart: "+op, "account", accountID, "item", cmd.ItemID)
	if s.events != nil {
		s.events.Fire(event.CartUpdated, event.CartChange{
			AccountID: accountID,
			ItemID:    cmd.ItemID,
			Delta:     delta,
			Cart:      res.Cart,
		})
	}
	return CartResult{Cart: res.Cart, Applied: true}, nil
}
