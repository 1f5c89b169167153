package shopclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/app/repositories"
	"github.com/modera-shop/modera/app/services"
	"github.com/modera-shop/modera/config"
	"github.com/modera-shop/modera/pkg/app"
	"github.com/modera-shop/modera/pkg/cache"
	"github.com/modera-shop/modera/pkg/shopclient"
	"github.com/modera-shop/modera/pkg/storage"
)

func startShop(t *testing.T) (*app.Application, *httptest.Server) {
	t.Helper()
	s := config.FromMap(map[string]string{"JWT_SECRET": "test-secret", "STORAGE_LOCAL_ROOT": t.TempDir()})
	a := app.New(s, repositories.NewMemory(), cache.NewMemory(), storage.NewManager(context.Background(), s))
	h, err := a.Handler()
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close(context.Background())
	})
	return a, srv
}

func newClient(t *testing.T, opts shopclient.Options) *shopclient.Client {
	t.Helper()
	c, err := shopclient.New(opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestClient_SyncsWithShop(t *testing.T) {
	a, srv := startShop(t)
	ctx := context.Background()
	for _, name := range []string{"Blouse", "Jacket"} {
		_, err := a.Catalog.Add(ctx, services.AddProductInput{Name: name, Image: "p.png", Category: "women", NewPrice: 20})
		require.NoError(t, err)
	}

	store := shopclient.NewFileStore(filepath.Join(t.TempDir(), "cart.json"))
	c := newClient(t, shopclient.Options{BaseURL: srv.URL, Store: store})
	require.NoError(t, c.Signup(ctx, "Ada", "ada@example.com", "secret"))

	c.Increment("1")
	c.Increment("1")
	c.Increment("2")
	c.Decrement("2")
	c.Decrement("2")
	c.Flush()

	assert.Equal(t, models.Cart{"1": 2}, c.Cart())
	assert.Equal(t, 2, c.TotalItems())

	products, err := c.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40.0, c.TotalAmount(products))

	account, err := a.Auth.VerifyCredentials(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	remote, err := a.Carts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Cart{"1": 2}, remote)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, models.Cart{"1": 2}, saved)

	// a second device picks up the server cart on Load
	other := newClient(t, shopclient.Options{BaseURL: srv.URL})
	require.NoError(t, other.Login(ctx, "ada@example.com", "secret"))
	require.NoError(t, other.Load(ctx))
	assert.Equal(t, models.Cart{"1": 2}, other.Cart())
	assert.NotEqual(t, c.ClientID(), other.ClientID())
}

func TestClient_LoginFailure(t *testing.T) {
	_, srv := startShop(t)
	c := newClient(t, shopclient.Options{BaseURL: srv.URL})

	err := c.Login(context.Background(), "nobody@example.com", "x")
	assert.ErrorContains(t, err, "Wrong email address")
	assert.Empty(t, c.Token())
}

func TestClient_OfflineKeepsLocalState(t *testing.T) {
	c := newClient(t, shopclient.Options{BaseURL: "http://shop.invalid"})

	c.Increment("5")
	c.Increment("5")
	c.Decrement("7")
	c.Flush()

	assert.Equal(t, models.Cart{"5": 2}, c.Cart())
	assert.Equal(t, 0, c.Quantity("7"))
}

func TestClient_FailedCommandKeepsOptimisticCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Internal Server Error"}`))
	}))
	defer srv.Close()

	c := newClient(t, shopclient.Options{BaseURL: srv.URL, Token: "tok", Retries: 1})
	c.Increment("3")
	c.Flush()

	assert.Equal(t, models.Cart{"3": 1}, c.Cart())
}

func TestClient_DiscardsSupersededResponse(t *testing.T) {
	release := make(chan struct{})
	first := make(chan struct{})
	var once sync.Once
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cmd struct {
			ClientID string `json:"clientId"`
			Seq      int64  `json:"seq"`
		}
		_ = json.NewDecoder(r.Body).Decode(&cmd)
		assert.NotEmpty(t, cmd.ClientID)

		if calls.Add(1) == 1 {
			once.Do(func() { close(first) })
			<-release
			_ = json.NewEncoder(w).Encode(map[string]int{"9": 9})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(t, shopclient.Options{BaseURL: srv.URL, Token: "tok", Retries: 1})
	c.Increment("1")

	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first command never reached the server")
	}
	c.Increment("1")
	close(release)
	c.Flush()

	assert.Equal(t, models.Cart{"1": 2}, c.Cart())
}

func TestClient_SequenceKeepsGrowing(t *testing.T) {
	var mu sync.Mutex
	var seqs []int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cmd struct {
			Seq int64 `json:"seq"`
		}
		_ = json.NewDecoder(r.Body).Decode(&cmd)
		mu.Lock()
		seqs = append(seqs, cmd.Seq)
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	frozen := time.UnixMilli(1_700_000_000_000)
	c := newClient(t, shopclient.Options{BaseURL: srv.URL, Token: "tok", Now: func() time.Time { return frozen }})
	c.Increment("1")
	c.Increment("1")
	c.Decrement("1")
	c.Flush()

	assert.Equal(t, []int64{1_700_000_000_000, 1_700_000_000_001, 1_700_000_000_002}, seqs)
}

func TestClient_RestartWithSameClientID(t *testing.T) {
	a, srv := startShop(t)
	ctx := context.Background()
	_, err := a.Catalog.Add(ctx, services.AddProductInput{Name: "Blouse", Image: "p.png", Category: "women", NewPrice: 20})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cart.json")
	started := time.Now()

	first, err := shopclient.New(shopclient.Options{
		BaseURL:  srv.URL,
		ClientID: "device-1",
		Store:    shopclient.NewFileStore(path),
		Now:      func() time.Time { return started },
	})
	require.NoError(t, err)
	require.NoError(t, first.Signup(ctx, "Ada", "ada@example.com", "secret"))
	first.Increment("1")
	first.Increment("1")
	first.Flush()
	token := first.Token()
	first.Close()

	second := newClient(t, shopclient.Options{
		BaseURL:  srv.URL,
		ClientID: "device-1",
		Token:    token,
		Store:    shopclient.NewFileStore(path),
		Now:      func() time.Time { return started.Add(time.Minute) },
	})
	require.NoError(t, second.Load(ctx))
	second.Increment("1")
	second.Flush()

	assert.Equal(t, models.Cart{"1": 3}, second.Cart())
	account, err := a.Auth.VerifyCredentials(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	remote, err := a.Carts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Cart{"1": 3}, remote)
}

func TestClient_UnappliedCommandKeepsLocalCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cart-Applied", "false")
		_, _ = w.Write([]byte(`{"1":7}`))
	}))
	defer srv.Close()

	c := newClient(t, shopclient.Options{BaseURL: srv.URL, Token: "tok"})
	c.Increment("1")
	c.Flush()

	assert.Equal(t, models.Cart{"1": 1}, c.Cart())
}

func TestClient_LoadFromStoreWithoutToken(t *testing.T) {
	store := shopclient.NewFileStore(filepath.Join(t.TempDir(), "nested", "cart.json"))
	require.NoError(t, store.Save(models.Cart{"4": 3, "8": 0}))

	c := newClient(t, shopclient.Options{BaseURL: "http://shop.invalid", Store: store})
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, models.Cart{"4": 3}, c.Cart())
	assert.Equal(t, 0.0, c.TotalAmount(nil))
	assert.Equal(t, 45.0, c.TotalAmount([]models.Product{{ID: 4, NewPrice: 15}, {ID: 5, NewPrice: 99}}))
}

func TestFileStore_MissingFile(t *testing.T) {
	cart, err := shopclient.NewFileStore(filepath.Join(t.TempDir(), "none.json")).Load()
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := shopclient.New(shopclient.Options{})
	assert.Error(t, err)
}
