package services

import (
	"errors"
	"log"
	"time"

	"github.com/CMoments/Online-life/models"

	"gorm.io/gorm"
)

// BidService lets staff bid on full, unassigned tasks and resolves each task
// to a single winner. Resolution runs inside the same transaction as the
// quorum-reaching bid, serialized on the task row, so it happens exactly once
// per task.
type BidService struct {
	DB         *gorm.DB
	Reputation *ReputationService
}

// Bid places a pending bid. The task must be full with no current bidder and
// an unexpired deadline; a second pending bid from the same user conflicts.
// The bid that brings the pending count to the quorum triggers resolution.
func (s *BidService) Bid(taskID, userID uint) (*models.BidRecord, error) {
	var bid *models.BidRecord
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		task, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.Status != models.TaskFull {
			return &StateError{Entity: "task", State: string(task.Status), Op: "bid on"}
		}
		if task.CurrentBidderID != nil {
			return &StateError{Entity: "task", State: "already has a bidder", Op: "bid on"}
		}
		// A biddable task without a deadline is corrupt data, not an open
		// window.
		if task.BidDeadline == nil {
			return &StateError{Entity: "task", State: "missing bid deadline", Op: "bid on"}
		}
		if time.Now().After(*task.BidDeadline) {
			return &StateError{Entity: "task", State: "bidding closed", Op: "bid on"}
		}
		if err := taskOrderOpen(tx, taskID); err != nil {
			return err
		}

		var existing models.BidRecord
		err = tx.Where("task_id = ? AND user_id = ? AND status = ?",
			taskID, userID, models.BidPending).First(&existing).Error
		if err == nil {
			return &ConflictError{Reason: "you already bid on this task"}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		record := models.BidRecord{
			TaskID:  taskID,
			UserID:  userID,
			Status:  models.BidPending,
			BidTime: time.Now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		bid = &record

		var pending int64
		if err := tx.Model(&models.BidRecord{}).
			Where("task_id = ? AND status = ?", taskID, models.BidPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending >= models.BidQuorum {
			return s.resolve(tx, task, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// AcceptBid resolves a task in favor of one specific bid, outside the quorum
// path. Only the client owning the linked order (or the campaign creator for
// group tasks) may accept.
func (s *BidService) AcceptBid(taskID, bidID, actorID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		task, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.Status != models.TaskFull {
			return &StateError{Entity: "task", State: string(task.Status), Op: "accept a bid on"}
		}
		if err := s.authorizeAccept(tx, task, actorID); err != nil {
			return err
		}

		var winner models.BidRecord
		err = tx.Where("id = ? AND task_id = ?", bidID, taskID).First(&winner).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "bid", ID: bidID}
		}
		if err != nil {
			return err
		}
		if winner.Status != models.BidPending {
			return &StateError{Entity: "bid", State: string(winner.Status), Op: "accept"}
		}
		return s.resolve(tx, task, &winner)
	})
}

// resolve is the single terminal path for both the quorum trigger and manual
// acceptance. With a nil winner it ranks the oldest quorum of pending bids by
// the bidders' average reputation, ties broken by earliest bid.
func (s *BidService) resolve(tx *gorm.DB, task *models.Task, winner *models.BidRecord) error {
	var pending []models.BidRecord
	if err := tx.Where("task_id = ? AND status = ?", task.ID, models.BidPending).
		Order("bid_time ASC, id ASC").
		Find(&pending).Error; err != nil {
		return err
	}
	if len(pending) == 0 {
		return &StateError{Entity: "task", State: "no pending bids", Op: "resolve"}
	}

	if winner == nil {
		candidates := pending
		if len(candidates) > models.BidQuorum {
			candidates = candidates[:models.BidQuorum]
		}
		best := &candidates[0]
		bestScore, err := s.averageScoreTx(tx, best.UserID)
		if err != nil {
			return err
		}
		for i := 1; i < len(candidates); i++ {
			score, err := s.averageScoreTx(tx, candidates[i].UserID)
			if err != nil {
				return err
			}
			// Strictly-greater keeps the earliest bidder on ties.
			if score > bestScore {
				best = &candidates[i]
				bestScore = score
			}
		}
		winner = best
		log.Printf("[bidding] task=%d auto-assigned to user=%d (score=%.2f, %d bids)",
			task.ID, winner.UserID, bestScore, len(candidates))
	}

	if err := tx.Model(&models.BidRecord{}).Where("id = ?", winner.ID).
		Update("status", models.BidAccepted).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.BidRecord{}).
		Where("task_id = ? AND status = ? AND id <> ?", task.ID, models.BidPending, winner.ID).
		Update("status", models.BidRejected).Error; err != nil {
		return err
	}
	taskUpdates := map[string]interface{}{
		"current_bidder_id": winner.UserID,
		"status":            models.TaskAssigned,
	}
	if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(taskUpdates).Error; err != nil {
		return err
	}

	// Propagate to the linked order, if the task backs one.
	var order models.Order
	err := lockForUpdate(tx).Where("task_id = ?", task.ID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if order.Status != models.OrderPending {
		return &StateError{Entity: "order", State: string(order.Status), Op: "assign"}
	}
	orderUpdates := map[string]interface{}{
		"staff_id":          winner.UserID,
		"status":            models.OrderAssigned,
		"assignment_status": models.AssignmentAssigned,
	}
	return tx.Model(&order).Updates(orderUpdates).Error
}

type BiddableTask struct {
	Task        models.Task `json:"task"`
	PendingBids int64       `json:"pending_bids"`
}

// ListBiddable returns tasks staff can currently bid on.
func (s *BidService) ListBiddable(taskType string, page, perPage int) ([]BiddableTask, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	query := s.DB.Model(&models.Task{}).
		Where("status = ? AND current_bidder_id IS NULL AND bid_deadline > ?", models.TaskFull, time.Now())
	if taskType != "" {
		query = query.Where("task_type = ?", taskType)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tasks []models.Task
	if err := query.Order("bid_deadline ASC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	out := make([]BiddableTask, 0, len(tasks))
	for _, task := range tasks {
		entry := BiddableTask{Task: task}
		s.DB.Model(&models.BidRecord{}).
			Where("task_id = ? AND status = ?", task.ID, models.BidPending).
			Count(&entry.PendingBids)
		out = append(out, entry)
	}
	return out, total, nil
}

type UserBid struct {
	Bid             models.BidRecord `json:"bid"`
	Task            models.Task      `json:"task"`
	IsCurrentBidder bool             `json:"is_current_bidder"`
}

// UserBids returns a staff member's bid history, newest first.
func (s *BidService) UserBids(userID uint, status models.BidStatus, page, perPage int) ([]UserBid, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	query := s.DB.Model(&models.BidRecord{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var bids []models.BidRecord
	if err := query.Order("id DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&bids).Error; err != nil {
		return nil, 0, err
	}
	out := make([]UserBid, 0, len(bids))
	for _, bid := range bids {
		entry := UserBid{Bid: bid}
		var task models.Task
		if err := s.DB.First(&task, bid.TaskID).Error; err == nil {
			entry.Task = task
			entry.IsCurrentBidder = task.CurrentBidderID != nil && *task.CurrentBidderID == userID
		}
		out = append(out, entry)
	}
	return out, total, nil
}

// averageScoreTx computes the mean reputation inside the resolution
// transaction so ranking and assignment observe one snapshot.
func (s *BidService) averageScoreTx(tx *gorm.DB, userID uint) (float64, error) {
	var avg *float64
	err := tx.Model(&models.Review{}).
		Where("subject_id = ?", userID).
		Select("AVG(score)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// taskOrderOpen rejects bids on tasks whose backing order is no longer open
// (cancelled orders keep their task rows).
func taskOrderOpen(tx *gorm.DB, taskID uint) error {
	var order models.Order
	err := tx.Where("task_id = ?", taskID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if order.Status != models.OrderPending || order.AssignmentStatus != models.AssignmentOpen {
		return &StateError{Entity: "order", State: string(order.Status), Op: "bid on"}
	}
	return nil
}

func (s *BidService) authorizeAccept(tx *gorm.DB, task *models.Task, actorID uint) error {
	var order models.Order
	err := tx.Where("task_id = ?", task.ID).First(&order).Error
	if err == nil {
		if order.ClientID != actorID {
			return &PermissionError{Reason: "only the order owner may accept a bid"}
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if task.GroupTaskID != nil {
		var group models.GroupTask
		if err := tx.First(&group, *task.GroupTaskID).Error; err != nil {
			return err
		}
		if group.CreatorID != actorID {
			return &PermissionError{Reason: "only the group task creator may accept a bid"}
		}
		return nil
	}
	return &PermissionError{Reason: "not authorized to accept bids on this task"}
}
