package models

import "time"

type Canteen struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	OwnerID     uint       `json:"owner_id" gorm:"not null"`
	Name        string     `json:"name" gorm:"not null"`
	Place       string     `json:"place"`
	IsOpen      bool       `json:"is_open" gorm:"default:true"`
	OpeningTime string     `json:"opening_time"` // "HH:MM", empty means no restriction
	ClosingTime string     `json:"closing_time"` // "HH:MM", empty means no restriction
	MenuItems   []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:CanteenID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type MenuItem struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	CanteenID         uint      `json:"canteen_id" gorm:"not null;index"`
	Name              string    `json:"name" gorm:"not null"`
	Price             float64   `json:"price" gorm:"not null"`
	AvailableQuantity int       `json:"available_quantity" gorm:"not null"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
