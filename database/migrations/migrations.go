// Package migrations holds the SQL schema for the gorm store. Importing it
// registers every migration with pkg/migration.
package migrations

import (
	"gorm.io/gorm"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/pkg/migration"
)

func init() {
	migration.Register("20260301000000_create_products_table", &CreateProductsTable{})
	migration.Register("20260301000001_create_counters_table", &CreateCountersTable{})
	migration.Register("20260301000002_create_users_table", &CreateUsersTable{})
	migration.Register("20260301000003_create_cart_tables", &CreateCartTables{})
}

type CreateProductsTable struct{}

func (m *CreateProductsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Product{})
}

func (m *CreateProductsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("products")
}

type CreateCountersTable struct{}

func (m *CreateCountersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Counter{})
}

func (m *CreateCountersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("counters")
}

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("users")
}

// cart_items and cart_clocks
type CreateCartTables struct{}

func (m *CreateCartTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.CartItem{}, &models.CartClock{})
}

func (m *CreateCartTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("cart_clocks", "cart_items")
}
