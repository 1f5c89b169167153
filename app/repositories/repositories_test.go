package repositories_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/app/repositories"
	_ "github.com/modera-shop/modera/database/migrations"
	"github.com/modera-shop/modera/pkg/database"
)

func backends(t *testing.T) map[string]*repositories.Stores {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "modera.db"))
	require.NoError(t, err)
	sql := repositories.NewSQL(db)
	require.NoError(t, sql.Migrate(context.Background()))
	t.Cleanup(func() { _ = sql.Close(context.Background()) })

	out := map[string]*repositories.Stores{
		"memory": repositories.NewMemory(),
		"sql":    sql,
	}
	if url := os.Getenv("MONGODB_TEST_URL"); url != "" {
		out["mongo"] = liveMongo(t, url)
	}
	return out
}

// liveMongo runs against a throwaway database on a real server.
func liveMongo(t *testing.T, url string) *repositories.Stores {
	t.Helper()
	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, url)
	require.NoError(t, err)
	db := client.Database("modera_test_" + primitive.NewObjectID().Hex())
	s := repositories.NewMongo(db)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func eachBackend(t *testing.T, fn func(t *testing.T, s *repositories.Stores)) {
	for name, s := range backends(t) {
		s := s
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func TestCatalog_IDsAreNeverReused(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		a, err := s.Catalog.Insert(ctx, models.Product{Name: "A", Category: "women", Available: true})
		require.NoError(t, err)
		b, err := s.Catalog.Insert(ctx, models.Product{Name: "B", Category: "men", Available: true})
		require.NoError(t, err)
		assert.Greater(t, b.ID, a.ID)
		assert.False(t, b.Date.IsZero())

		require.NoError(t, s.Catalog.RemoveByID(ctx, b.ID))
		c, err := s.Catalog.Insert(ctx, models.Product{Name: "C", Category: "women", Available: true})
		require.NoError(t, err)
		assert.Greater(t, c.ID, b.ID)

		all, err := s.Catalog.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "A", all[0].Name)
		assert.Equal(t, "C", all[1].Name)
	})
}

func TestCatalog_ConcurrentInsertsGetDistinctIDs(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		var wg sync.WaitGroup
		ids := make(chan int, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p, err := s.Catalog.Insert(ctx, models.Product{Name: "P", Category: "kid"})
				if assert.NoError(t, err) {
					ids <- p.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[int]bool{}
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, 10)
	})
}

func TestCatalog_ByCategoryAndRemoveMissing(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		for _, c := range []string{"women", "men", "women", "Women"} {
			_, err := s.Catalog.Insert(ctx, models.Product{Name: c, Category: c})
			require.NoError(t, err)
		}
		women, err := s.Catalog.ByCategory(ctx, "women")
		require.NoError(t, err)
		assert.Len(t, women, 2)

		assert.NoError(t, s.Catalog.RemoveByID(ctx, 999))
		ok, err := s.Catalog.Exists(ctx, 999)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCatalog_ReplaceImagePrefix(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		_, _ = s.Catalog.Insert(ctx, models.Product{Name: "old", Image: "http://localhost:4000/images/a.png"})
		_, _ = s.Catalog.Insert(ctx, models.Product{Name: "cdn", Image: "https://cdn.example/b.png"})

		n, err := s.Catalog.ReplaceImagePrefix(ctx, "http://localhost:4000", "https://api.modera.shop")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		all, _ := s.Catalog.All(ctx)
		assert.Equal(t, "https://api.modera.shop/images/a.png", all[0].Image)
		assert.Equal(t, "https://cdn.example/b.png", all[1].Image)
	})
}

func TestAccounts_CreateAndFind(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		u, err := s.Accounts.Create(ctx, models.User{Name: "Ada", Email: "ada@example.com", Password: "hash"})
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Empty(t, u.CartData)

		_, err = s.Accounts.Create(ctx, models.User{Name: "Other", Email: "ada@example.com", Password: "x"})
		assert.ErrorIs(t, err, repositories.ErrDuplicateEmail)

		byEmail, err := s.Accounts.FindByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		_, err = s.Accounts.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		_, err = s.Accounts.FindByID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestAccounts_AdjustCart(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		u, err := s.Accounts.Create(ctx, models.User{Name: "Ada", Email: "ada@example.com", Password: "hash"})
		require.NoError(t, err)

		res, err := s.Accounts.AdjustCart(ctx, u.ID, repositories.CartCommand{ItemID: "12", Delta: 1})
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, models.Cart{"12": 1}, res.Cart)

		res, err = s.Accounts.AdjustCart(ctx, u.ID, repositories.CartCommand{ItemID: "12", Delta: -1})
		require.NoError(t, err)
		assert.Empty(t, res.Cart)

		// floor at zero
		res, err = s.Accounts.AdjustCart(ctx, u.ID, repositories.CartCommand{ItemID: "12", Delta: -1})
		require.NoError(t, err)
		assert.Empty(t, res.Cart)

		cart, err := s.Accounts.GetCart(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, cart)
	})
}

func TestAccounts_AdjustCartIsIdempotentPerClient(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		u, _ := s.Accounts.Create(ctx, models.User{Name: "Ada", Email: "ada@example.com", Password: "hash"})

		cmd := repositories.CartCommand{ItemID: "3", Delta: 1, ClientID: "tab-1", Seq: 1}
		res, err := s.Accounts.AdjustCart(ctx, u.ID, cmd)
		require.NoError(t, err)
		assert.True(t, res.Applied)

		res, err = s.Accounts.AdjustCart(ctx, u.ID, cmd)
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, models.Cart{"3": 1}, res.Cart)

		// another client has its own clock
		res, err = s.Accounts.AdjustCart(ctx, u.ID, repositories.CartCommand{ItemID: "3", Delta: 1, ClientID: "tab-2", Seq: 1})
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, models.Cart{"3": 2}, res.Cart)

		// a decrement with nothing to remove still advances the clock
		res, err = s.Accounts.AdjustCart(ctx, u.ID, repositories.CartCommand{ItemID: "9", Delta: -1, ClientID: "tab-1", Seq: 2})
		require.NoError(t, err)
		assert.True(t, res.Applied)
		res, err = s.Accounts.AdjustCart(ctx, u.ID, repositories.CartCommand{ItemID: "3", Delta: 1, ClientID: "tab-1", Seq: 2})
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, models.Cart{"3": 2}, res.Cart)
	})
}

func TestAccounts_ConcurrentIncrementsAreNotLost(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		u, _ := s.Accounts.Create(ctx, models.User{Name: "Ada", Email: "ada@example.com", Password: "hash"})

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Accounts.AdjustCart(ctx, u.ID, repositories.CartCommand{ItemID: "5", Delta: 1})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		cart, err := s.Accounts.GetCart(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, cart["5"])
	})
}

func TestAccounts_SetCartAndErrors(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Stores) {
		ctx := context.Background()
		u, _ := s.Accounts.Create(ctx, models.User{Name: "Ada", Email: "ada@example.com", Password: "hash"})

		require.NoError(t, s.Accounts.SetCart(ctx, u.ID, models.Cart{"1": 2, "4": 0}))
		cart, err := s.Accounts.GetCart(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Cart{"1": 2}, cart)

		assert.ErrorIs(t, s.Accounts.SetCart(ctx, "missing", models.Cart{}), repositories.ErrNotFound)
		_, err = s.Accounts.AdjustCart(ctx, "missing", repositories.CartCommand{ItemID: "1", Delta: 1})
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		for _, bad := range []repositories.CartCommand{
			{ItemID: "cartData", Delta: 1},
			{ItemID: "01", Delta: 1},
			{ItemID: "1", Delta: 2},
			{ItemID: "1", Delta: 1, ClientID: "a.b", Seq: 1},
			{ItemID: "1", Delta: 1, ClientID: "tab", Seq: 0},
		} {
			_, err := s.Accounts.AdjustCart(ctx, u.ID, bad)
			assert.ErrorIs(t, err, repositories.ErrInvalidCommand, "%+v", bad)
		}
	})
}
