package models

import "time"

// Product is one catalog entry. ID comes from the store's counter and is
// never reused after a delete.
type Product struct {
	ID        int       `bson:"id"        json:"id"        gorm:"primaryKey;autoIncrement:false"`
	Name      string    `bson:"name"      json:"name"      gorm:"size:255;not null"`
	Image     string    `bson:"image"     json:"image"     gorm:"size:1024;not null"`
	Category  string    `bson:"category"  json:"category"  gorm:"size:64;not null;index"`
	NewPrice  float64   `bson:"new_price" json:"new_price" gorm:"not null"`
	OldPrice  float64   `bson:"old_price" json:"old_price" gorm:"not null"`
	Date      time.Time `bson:"date"      json:"date"`
	Available bool      `bson:"available" json:"available" gorm:"not null;default:true"`
}

// Counter backs the SQL product id sequence.
type Counter struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int    `gorm:"not null;default:0"`
}
