package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/pkg/collection"
)

// NewMemory returns process-local stores used by tests and the testkit.
func NewMemory() *Stores {
	return &Stores{
		Driver:   "memory",
		Catalog:  &memoryCatalog{},
		Accounts: &memoryAccounts{users: map[string]*memoryUser{}},
		Migrate:  func(context.Context) error { return nil },
		Close:    func(context.Context) error { return nil },
	}
}

type memoryCatalog struct {
	mu       sync.RWMutex
	seq      int
	products []models.Product
}

func (m *memoryCatalog) All(_ context.Context) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Product{}, m.products...), nil
}

func (m *memoryCatalog) ByCategory(_ context.Context, category string) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collection.Filter(m.products, func(p models.Product) bool { return p.Category == category }), nil
}

func (m *memoryCatalog) Insert(_ context.Context, p models.Product) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = m.seq
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	m.products = append(m.products, p)
	return p, nil
}

func (m *memoryCatalog) RemoveByID(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.products {
		if p.ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryCatalog) Exists(_ context.Context, id int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryCatalog) ReplaceImagePrefix(_ context.Context, from, to string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.products {
		if from != "" && strings.Contains(m.products[i].Image, from) {
			m.products[i].Image = strings.Replace(m.products[i].Image, from, to, 1)
			n++
		}
	}
	return n, nil
}

type memoryUser struct {
	user  models.User
	clock map[string]int64
}

type memoryAccounts struct {
	mu    sync.Mutex
	users map[string]*memoryUser
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.user.Email == email {
			return copyUser(u.user), nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *memoryAccounts) FindByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return copyUser(u.user), nil
}

func (m *memoryAccounts) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.user.Email == u.Email {
			return models.User{}, ErrDuplicateEmail
		}
	}
	u.ID = primitive.NewObjectID().Hex()
	u.CartData = models.Cart{}
	if u.Date.IsZero() {
		u.Date = time.Now().UTC()
	}
	m.users[u.ID] = &memoryUser{user: u, clock: map[string]int64{}}
	return copyUser(u), nil
}

func (m *memoryAccounts) GetCart(_ context.Context, id string) (models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.user.CartData.Clone(), nil
}

func (m *memoryAccounts) SetCart(_ context.Context, id string, cart models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.user.CartData = cart.Clone()
	return nil
}

func (m *memoryAccounts) AdjustCart(_ context.Context, id string, cmd CartCommand) (CartResult, error) {
	if err := cmd.validate(); err != nil {
		return CartResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return CartResult{}, ErrNotFound
	}
	if cmd.ClientID != "" {
		last, seen := u.clock[cmd.ClientID]
		if !fresh(last, seen, cmd.Seq) {
			return CartResult{Cart: u.user.CartData.Clone()}, nil
		}
		u.clock[cmd.ClientID] = cmd.Seq
	}
	qty := u.user.CartData[cmd.ItemID]
	if cmd.Delta > 0 || qty > 0 {
		u.user.CartData[cmd.ItemID] = qty + cmd.Delta
	}
	return CartResult{Cart: u.user.CartData.Clone(), Applied: true}, nil
}

func copyUser(u models.User) models.User {
	u.CartData = u.CartData.Clone()
	return u
}
