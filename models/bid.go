package models

import "time"

type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidCancelled BidStatus = "cancelled"
)

// BidQuorum is the pending-bid count that triggers automatic resolution.
const BidQuorum = 5

// BidRecord is a staff member's bid on a full task. A user may hold at most
// one pending bid per task; re-bidding after a cancellation is a new row, so
// uniqueness is enforced inside the task-locked transaction rather than by a
// unique index.
type BidRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index:idx_bid_task_user" json:"task_id"`
	UserID    uint      `gorm:"not null;index:idx_bid_task_user;index" json:"user_id"`
	Status    BidStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	BidTime   time.Time `gorm:"not null" json:"bid_time"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (BidRecord) TableName() string {
	return "bid_records"
}
