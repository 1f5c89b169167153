package shopclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/modera-shop/modera/app/models"
)

// LocalStore keeps the cart across restarts.
type LocalStore interface {
	Load() (models.Cart, error)
	Save(models.Cart) error
}

// FileStore is a LocalStore backed by a JSON file. A missing file loads as
// an empty cart.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("shopclient: read %s: %w", s.path, err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("shopclient: decode %s: %w", s.path, err)
	}
	return cart.Clone(), nil
}

// Save replaces the file through a temp file and rename.
func (s *FileStore) Save(cart models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("shopclient: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("shopclient: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}

type memoryStore struct {
	mu   sync.Mutex
	cart models.Cart
}

func (m *memoryStore) Load() (models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.Clone(), nil
}

func (m *memoryStore) Save(c models.Cart) error {
	m.mu.Lock()
	m.cart = c.Clone()
	m.mu.Unlock()
	return nil
}
