package models

import "time"

type PointsTxType string

const (
	PointsAdd         PointsTxType = "ADD"
	PointsDeduct      PointsTxType = "DEDUCT"
	PointsTransferIn  PointsTxType = "TRANSFER_IN"
	PointsTransferOut PointsTxType = "TRANSFER_OUT"
)

// PointsAccount holds the materialized balance. It is only ever mutated in
// the same transaction as the ledger entry recording the change.
type PointsAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (PointsAccount) TableName() string {
	return "points_accounts"
}

// PointsEntry is an append-only ledger record. Rows are never updated or
// deleted; a user's balance is the sum of their entries.
type PointsEntry struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uint         `gorm:"not null;index" json:"user_id"`
	Change        int64        `gorm:"not null" json:"change"`
	TxType        PointsTxType `gorm:"type:varchar(15);not null" json:"tx_type"`
	Reason        string       `gorm:"size:256;not null" json:"reason"`
	BalanceBefore int64        `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64        `gorm:"not null" json:"balance_after"`
	OrderID       *uint        `gorm:"index" json:"order_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (PointsEntry) TableName() string {
	return "points_entries"
}
