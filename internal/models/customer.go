package models

import (
	"time"

	"gorm.io/gorm"
)

type Customer struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	FirstName      string         `json:"first_name" gorm:"not null"`
	LastName       string         `json:"last_name" gorm:"not null"`
	Email          *string        `json:"email" gorm:"index"`
	Phone          *string        `json:"phone"`
	DocumentType   *string        `json:"document_type"`
	DocumentNumber *string        `json:"document_number" gorm:"index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (Customer) TableName() string {
	return "customers"
}

// CustomerSummary is the projection embedded in order responses.
type CustomerSummary struct {
	ID        uint    `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

func (c *Customer) Summary() *CustomerSummary {
	return &CustomerSummary{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
	}
}
