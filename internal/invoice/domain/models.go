// Package domain contains persistence models for invoicing.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusOpen  InvoiceStatus = "open"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

var ErrNotFound = errors.New("invoice_not_found")

// Invoice represents a standalone invoice paid through a checkout session.
type Invoice struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID  `gorm:"column:org_id;not null;index" json:"org_id"`
	CustomerID snowflake.ID  `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Status     InvoiceStatus `gorm:"type:text;not null;default:'open'" json:"status"`
	Currency   string        `gorm:"type:text;not null" json:"currency"`
	Livemode   bool          `gorm:"not null;default:false" json:"livemode"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLineItem represents a line on an invoice. Price is per unit.
type InvoiceLineItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"column:invoice_id;not null;index" json:"invoice_id"`
	Description string       `gorm:"type:text" json:"description"`
	Price       int64        `gorm:"not null" json:"price"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceLineItem) TableName() string { return "invoice_line_items" }
