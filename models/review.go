package models

import "time"

// Review is one reputation evaluation. A reviewer may rate a given order at
// most once; a user's reputation score is the mean of all reviews where they
// are the subject.
type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReviewerID uint      `gorm:"not null;uniqueIndex:uniq_reviewer_order" json:"reviewer_id"`
	SubjectID  uint      `gorm:"not null;index" json:"subject_id"`
	OrderID    *uint     `gorm:"uniqueIndex:uniq_reviewer_order" json:"order_id,omitempty"`
	Score      float64   `gorm:"not null" json:"score"`
	Comment    string    `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
