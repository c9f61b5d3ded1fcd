package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderAssigned   OrderStatus = "assigned"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderPaid       OrderStatus = "paid"
	OrderCancelled  OrderStatus = "cancelled"
)

type OrderType string

const (
	OrderImmediate OrderType = "immediate"
	OrderScheduled OrderType = "scheduled"
)

type AssignmentMode string

const (
	AssignBidding AssignmentMode = "bidding"
	AssignDirect  AssignmentMode = "direct"
)

type AssignmentStatus string

const (
	AssignmentOpen     AssignmentStatus = "open"
	AssignmentAssigned AssignmentStatus = "assigned"
	AssignmentClosed   AssignmentStatus = "closed"
)

// Order is a client-initiated, single-assignee unit of work. StaffID is set
// exactly when the order is in an assigned-or-later state; TaskID links the
// order to the task staff actually bid on.
type Order struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	OrderNo          string           `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_no"`
	ClientID         uint             `gorm:"not null;index" json:"client_id"`
	StaffID          *uint            `gorm:"index" json:"staff_id"`
	TaskID           *uint            `gorm:"uniqueIndex" json:"task_id"`
	OrderType        OrderType        `gorm:"type:varchar(15);not null;default:'immediate'" json:"order_type"`
	Status           OrderStatus      `gorm:"type:varchar(15);not null;default:'pending';index" json:"status"`
	AssignmentMode   AssignmentMode   `gorm:"type:varchar(10);not null;default:'bidding'" json:"assignment_mode"`
	AssignmentStatus AssignmentStatus `gorm:"type:varchar(10);not null;default:'open'" json:"assignment_status"`
	Pickup           string           `gorm:"size:256;not null" json:"pickup"`
	Dropoff          string           `gorm:"size:256;not null" json:"dropoff"`
	Description      string           `gorm:"type:text" json:"description"`
	EstimatedMinutes int              `gorm:"not null" json:"estimated_minutes"`
	Amount           decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"amount"`
	ScheduledAt      *time.Time       `json:"scheduled_at"`
	CompletedAt      *time.Time       `json:"completed_at"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"-"`
}

func (Order) TableName() string {
	return "orders"
}
