package models

import "time"

// Cart maps a product id (decimal string) to its quantity.
type Cart map[string]int

// Clone returns a copy without zero or negative entries.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for k, v := range c {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// Items is the sum of all quantities.
func (c Cart) Items() int {
	n := 0
	for _, v := range c {
		if v > 0 {
			n += v
		}
	}
	return n
}

// User is a shop account. CartData is kept out of the users table on SQL
// stores and lives in cart_items instead.
type User struct {
	ID       string    `bson:"-"        json:"id"       gorm:"primaryKey;size:24"`
	Name     string    `bson:"name"     json:"name"     gorm:"size:255"`
	Email    string    `bson:"email"    json:"email"    gorm:"uniqueIndex;size:255;not null"`
	Password string    `bson:"password" json:"-"        gorm:"size:255;not null"`
	CartData Cart      `bson:"cartData" json:"cartData" gorm:"-"`
	Date     time.Time `bson:"date"     json:"date"`
}

// CartItem is one SQL cart row.
type CartItem struct {
	UserID    string `gorm:"primaryKey;size:24"`
	ProductID string `gorm:"primaryKey;size:20"`
	Qty       int    `gorm:"not null;default:0"`
}

// CartClock records the last applied command sequence per client.
type CartClock struct {
	UserID   string `gorm:"primaryKey;size:24"`
	ClientID string `gorm:"primaryKey;size:64"`
	Seq      int64  `gorm:"not null"`
}
