package models

import "time"

// Product represents a product in the catalog.
type Product struct {
	ID          string    `json:"id" form:"-" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string    `json:"name" form:"name" gorm:"type:varchar(100);not null" validate:"required,min=3,max=100"`
	Description string    `json:"description" form:"description" gorm:"type:varchar(500)" validate:"omitempty,max=500"`
	Price       float64   `json:"price" form:"price" validate:"required,gt=0"`
	Stock       int       `json:"stock" form:"stock" validate:"gte=0"`
	CreatedAt   time.Time `json:"createdAt" form:"-"`
	UpdatedAt   time.Time `json:"updatedAt" form:"-"`
}
