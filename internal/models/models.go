package models

import (
	"database/sql"
	"time"
)

// Account is the tenant identity created at registration.
type Account struct {
	ID          int64     `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	Password    string    `db:"password" json:"-"`
	Email       string    `db:"email" json:"email"`
	CompanyName string    `db:"company_name" json:"company_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UserProfile carries the role/status pair looked up during login.
type UserProfile struct {
	ID        int64     `db:"id" json:"id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	Role      string    `db:"role" json:"role"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Billing is the subscription record consulted by the login gate.
type Billing struct {
	ID          int64     `db:"id" json:"id"`
	AccountID   int64     `db:"account_id" json:"account_id"`
	Amount      float64   `db:"amount" json:"amount"`
	AccountType string    `db:"account_type" json:"accountType"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	ExpireAt    time.Time `db:"expire_at" json:"expireAt"`
}

// Order is owned by the tenant (CompanyID); all mutation is scoped by
// (id, company_id).
type Order struct {
	ID          int64          `db:"id" json:"id"`
	CompanyID   int64          `db:"company_id" json:"company_id"`
	CreatedBy   int64          `db:"created_by" json:"created_by"`
	AssignedTo  sql.NullInt64  `db:"assigned_to" json:"assigned_to,omitempty"`
	Type        string         `db:"type" json:"type"`
	Status      string         `db:"status" json:"status"`
	TotalAmount float64        `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// OrderItem quantity is decremented during checkout and never re-incremented.
type OrderItem struct {
	ID            int64          `db:"id" json:"id"`
	OrderID       int64          `db:"order_id" json:"order_id"`
	ReferenceName string         `db:"reference_name" json:"referenceName"`
	Description   sql.NullString `db:"description" json:"description,omitempty"`
	Quantity      int            `db:"quantity" json:"quantity"`
	UnitPrice     float64        `db:"unit_price" json:"unitPrice"`
	Subtotal      float64        `db:"subtotal" json:"subtotal"`
}

// Payment records one row per checkout attempt, success or failure.
type Payment struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	CompanyID int64     `db:"company_id" json:"company_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Currency  string    `db:"currency" json:"currency"`
	Status    string    `db:"status" json:"status"`
	Provider  string    `db:"provider" json:"provider"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order statuses. COMPLETED is declared but the generic update path rejects
// transitioning into it; CONFIRMED is reachable only through the checkout
// saga.
const (
	OrderStatusCreated    = "CREATED"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusInProgress = "IN_PROGRESS"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCanceled   = "CANCELED"
)

// Order types
const (
	OrderTypeSale    = "SALE"
	OrderTypeService = "SERVICE"
	OrderTypeTask    = "TASK"
)

// Payment statuses
const (
	PaymentStatusPaid   = "PAID"
	PaymentStatusFailed = "FAILED"
)

// Profile statuses
const (
	UserStatusActive   = "ACTIVE"
	UserStatusInactive = "INACTIVE"
)

// Default role assigned when a profile is created alongside registration.
const DefaultUserRole = "ADMIN"
