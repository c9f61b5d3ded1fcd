package services

import (
	"errors"

	"github.com/CMoments/Online-life/models"
	"github.com/CMoments/Online-life/utils"

	"gorm.io/gorm"
)

// ReputationService aggregates review scores. A user's reputation is the
// arithmetic mean of every review where they are the subject.
type ReputationService struct {
	DB *gorm.DB
}

// SubmitReview records one evaluation. A reviewer may rate a given order
// only once.
func (s *ReputationService) SubmitReview(reviewerID, subjectID uint, orderID *uint, score float64, comment string) (*models.Review, error) {
	if score < 0 || score > 100 {
		return nil, &ValidationError{Field: "score", Reason: "must be between 0 and 100"}
	}
	if reviewerID == subjectID {
		return nil, &ValidationError{Field: "subject_id", Reason: "cannot review yourself"}
	}
	review := models.Review{
		ReviewerID: reviewerID,
		SubjectID:  subjectID,
		OrderID:    orderID,
		Score:      score,
		Comment:    comment,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if orderID != nil {
			var existing models.Review
			err := tx.Where("reviewer_id = ? AND order_id = ?", reviewerID, *orderID).First(&existing).Error
			if err == nil {
				return &ConflictError{Reason: "order already reviewed by this user"}
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return tx.Create(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// AverageScore returns the subject's mean review score, 0 when unreviewed.
func (s *ReputationService) AverageScore(userID uint) (float64, error) {
	var avg *float64
	err := s.DB.Model(&models.Review{}).
		Where("subject_id = ?", userID).
		Select("AVG(score)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return utils.RoundFloat(*avg, 2), nil
}

type ReputationSummary struct {
	UserID       uint            `json:"user_id"`
	AverageScore float64         `json:"average_score"`
	TotalReviews int64           `json:"total_reviews"`
	Recent       []models.Review `json:"recent_reviews"`
}

// GetSummary returns the aggregate plus the most recent reviews.
func (s *ReputationService) GetSummary(userID uint) (*ReputationSummary, error) {
	avg, err := s.AverageScore(userID)
	if err != nil {
		return nil, err
	}
	var count int64
	if err := s.DB.Model(&models.Review{}).Where("subject_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	var recent []models.Review
	if err := s.DB.Where("subject_id = ?", userID).Order("id DESC").Limit(10).Find(&recent).Error; err != nil {
		return nil, err
	}
	return &ReputationSummary{
		UserID:       userID,
		AverageScore: avg,
		TotalReviews: count,
		Recent:       recent,
	}, nil
}
