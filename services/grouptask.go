package services

import (
	"errors"
	"strings"
	"time"

	"github.com/CMoments/Online-life/models"

	"gorm.io/gorm"
)

// groupBidWindow is how long a freshly full task stays biddable.
const groupBidWindow = 7 * 24 * time.Hour

// GroupTaskService recruits participants into capacity-bounded tasks,
// spawning new tasks under the campaign as earlier ones fill, and promotes a
// task to the biddable pool the moment it reaches capacity.
type GroupTaskService struct {
	DB *gorm.DB
}

type CreateGroupTaskInput struct {
	Title            string
	TaskType         string
	Description      string
	Location         string
	EstimatedMinutes int
}

// Create opens a campaign and its first recruiting task, and enrolls the
// creator as the first participant.
func (s *GroupTaskService) Create(creatorID uint, in CreateGroupTaskInput) (*models.GroupTask, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.TaskType = strings.TrimSpace(in.TaskType)
	if in.Title == "" || isPlaceholder(in.Title) {
		return nil, &ValidationError{Field: "title", Reason: "is required"}
	}
	if in.TaskType == "" || isPlaceholder(in.TaskType) {
		return nil, &ValidationError{Field: "task_type", Reason: "is required"}
	}
	if in.EstimatedMinutes < 0 {
		return nil, &ValidationError{Field: "estimated_minutes", Reason: "cannot be negative"}
	}

	group := models.GroupTask{
		CreatorID:        creatorID,
		Title:            in.Title,
		TaskType:         in.TaskType,
		Description:      in.Description,
		Location:         in.Location,
		EstimatedMinutes: in.EstimatedMinutes,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		task := spawnTask(&group)
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.GroupTaskMember{
			GroupTaskID: group.ID,
			UserID:      creatorID,
			JoinedAt:    time.Now(),
		}).Error; err != nil {
			return err
		}
		_, err := addParticipant(tx, task.ID, creatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Join enrolls a user in the campaign, placing them in a recruiting task with
// spare capacity or cloning the template into a fresh one. When the join
// fills the task, it flips to full and receives its bid deadline in the same
// transaction.
func (s *GroupTaskService) Join(groupTaskID, userID uint) (*models.Task, error) {
	var joined *models.Task
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		group, err := lockGroupTask(tx, groupTaskID)
		if err != nil {
			return err
		}
		if group.EndedAt != nil {
			return &StateError{Entity: "group task", State: "ended", Op: "join"}
		}

		var member models.GroupTaskMember
		err = tx.Where("group_task_id = ? AND user_id = ?", groupTaskID, userID).First(&member).Error
		if err == nil {
			return &ConflictError{Reason: "already participating in this group task"}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		task, err := findOrSpawnTask(tx, group)
		if err != nil {
			return err
		}
		if err := tx.Create(&models.GroupTaskMember{
			GroupTaskID: groupTaskID,
			UserID:      userID,
			JoinedAt:    time.Now(),
		}).Error; err != nil {
			return err
		}
		if _, err := addParticipant(tx, task.ID, userID); err != nil {
			return err
		}
		if err := tx.First(task, task.ID).Error; err != nil {
			return err
		}
		joined = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// LeaveTask withdraws a user from one task but keeps them in the campaign:
// the engine reassigns them to another task with room, spawning one if
// needed. A vacated full task reopens for recruiting, loses its current
// bidder and has its pending bids cancelled.
func (s *GroupTaskService) LeaveTask(taskID, userID uint) (*models.Task, error) {
	var reassigned *models.Task
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		task, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.GroupTaskID == nil {
			return &StateError{Entity: "task", State: string(task.Status), Op: "leave"}
		}
		if task.Status == models.TaskAssigned || task.Status == models.TaskCompleted {
			return &StateError{Entity: "task", State: string(task.Status), Op: "leave"}
		}
		if err := markLeft(tx, task, userID); err != nil {
			return err
		}

		group, err := lockGroupTask(tx, *task.GroupTaskID)
		if err != nil {
			return err
		}
		if group.EndedAt != nil {
			return nil
		}
		next, err := findOrSpawnTaskExcluding(tx, group, task.ID)
		if err != nil {
			return err
		}
		if _, err := addParticipant(tx, next.ID, userID); err != nil {
			return err
		}
		if err := tx.First(next, next.ID).Error; err != nil {
			return err
		}
		reassigned = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reassigned, nil
}

// LeaveGroupTask removes the user from the campaign entirely: every active
// participation under it is marked left and each affected task is re-checked
// for reopening.
func (s *GroupTaskService) LeaveGroupTask(groupTaskID, userID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := lockGroupTask(tx, groupTaskID); err != nil {
			return err
		}
		var member models.GroupTaskMember
		err := tx.Where("group_task_id = ? AND user_id = ?", groupTaskID, userID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "group task membership", ID: groupTaskID}
		}
		if err != nil {
			return err
		}

		var tasks []models.Task
		if err := tx.Where("group_task_id = ?", groupTaskID).Find(&tasks).Error; err != nil {
			return err
		}
		for i := range tasks {
			task, err := lockTask(tx, tasks[i].ID)
			if err != nil {
				return err
			}
			var participant models.TaskParticipant
			err = tx.Where("task_id = ? AND user_id = ? AND status = ?",
				task.ID, userID, models.ParticipantActive).First(&participant).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := markLeft(tx, task, userID); err != nil {
				return err
			}
		}
		return tx.Delete(&member).Error
	})
}

type GroupTaskView struct {
	Group            models.GroupTask `json:"group_task"`
	Tasks            []TaskView       `json:"tasks"`
	ParticipantCount int64            `json:"participant_count"`
}

type TaskView struct {
	Task         models.Task `json:"task"`
	ActiveCount  int64       `json:"active_count"`
	Participants []uint      `json:"participant_ids,omitempty"`
}

// ListAvailable returns campaigns still recruiting, optionally filtered by
// task type.
func (s *GroupTaskService) ListAvailable(taskType string, page, perPage int) ([]GroupTaskView, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	query := s.DB.Model(&models.GroupTask{}).Where("ended_at IS NULL")
	if taskType != "" {
		query = query.Where("task_type = ?", taskType)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var groups []models.GroupTask
	if err := query.Order("id DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&groups).Error; err != nil {
		return nil, 0, err
	}
	views := make([]GroupTaskView, 0, len(groups))
	for i := range groups {
		view, err := s.buildView(&groups[i], false)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	return views, total, nil
}

// Status returns the campaign with per-task participant detail.
func (s *GroupTaskService) Status(groupTaskID uint) (*GroupTaskView, error) {
	var group models.GroupTask
	if err := s.DB.First(&group, groupTaskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "group task", ID: groupTaskID}
		}
		return nil, err
	}
	return s.buildView(&group, true)
}

func (s *GroupTaskService) buildView(group *models.GroupTask, withParticipants bool) (*GroupTaskView, error) {
	var tasks []models.Task
	if err := s.DB.Where("group_task_id = ?", group.ID).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	view := GroupTaskView{Group: *group}
	if err := s.DB.Model(&models.GroupTaskMember{}).
		Where("group_task_id = ?", group.ID).
		Count(&view.ParticipantCount).Error; err != nil {
		return nil, err
	}
	for _, task := range tasks {
		tv := TaskView{Task: task}
		if err := s.DB.Model(&models.TaskParticipant{}).
			Where("task_id = ? AND status = ?", task.ID, models.ParticipantActive).
			Count(&tv.ActiveCount).Error; err != nil {
			return nil, err
		}
		if withParticipants {
			var ids []uint
			if err := s.DB.Model(&models.TaskParticipant{}).
				Where("task_id = ? AND status = ?", task.ID, models.ParticipantActive).
				Pluck("user_id", &ids).Error; err != nil {
				return nil, err
			}
			tv.Participants = ids
		}
		view.Tasks = append(view.Tasks, tv)
	}
	return &view, nil
}

func spawnTask(group *models.GroupTask) *models.Task {
	return &models.Task{
		GroupTaskID:      &group.ID,
		TaskType:         group.TaskType,
		Description:      group.Description,
		Location:         group.Location,
		Capacity:         models.DefaultTaskCapacity,
		Status:           models.TaskRecruiting,
		EstimatedMinutes: group.EstimatedMinutes,
	}
}

func findOrSpawnTask(tx *gorm.DB, group *models.GroupTask) (*models.Task, error) {
	return findOrSpawnTaskExcluding(tx, group, 0)
}

// findOrSpawnTaskExcluding locates a recruiting task with spare capacity
// under the campaign, or clones the template into a new one. The task row is
// locked so the subsequent count-and-flip cannot race.
func findOrSpawnTaskExcluding(tx *gorm.DB, group *models.GroupTask, excludeTaskID uint) (*models.Task, error) {
	var tasks []models.Task
	query := tx.Where("group_task_id = ? AND status = ?", group.ID, models.TaskRecruiting)
	if excludeTaskID != 0 {
		query = query.Where("id <> ?", excludeTaskID)
	}
	if err := query.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	for i := range tasks {
		task, err := lockTask(tx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		if task.Status != models.TaskRecruiting {
			continue
		}
		count, err := activeCount(tx, task.ID)
		if err != nil {
			return nil, err
		}
		if count < int64(task.Capacity) {
			return task, nil
		}
	}
	task := spawnTask(group)
	if err := tx.Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// addParticipant records the participation and flips the task to full when
// the active count reaches capacity. Caller must hold the task row lock.
func addParticipant(tx *gorm.DB, taskID, userID uint) (*models.TaskParticipant, error) {
	var task models.Task
	if err := tx.First(&task, taskID).Error; err != nil {
		return nil, err
	}
	count, err := activeCount(tx, taskID)
	if err != nil {
		return nil, err
	}
	if count >= int64(task.Capacity) {
		return nil, &ConflictError{Reason: "task is already full"}
	}
	var existing models.TaskParticipant
	err = tx.Where("task_id = ? AND user_id = ? AND status = ?",
		taskID, userID, models.ParticipantActive).First(&existing).Error
	if err == nil {
		return nil, &ConflictError{Reason: "already participating in this task"}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	participant := models.TaskParticipant{
		TaskID:   taskID,
		UserID:   userID,
		Status:   models.ParticipantActive,
		JoinedAt: time.Now(),
	}
	if err := tx.Create(&participant).Error; err != nil {
		return nil, err
	}

	if count+1 == int64(task.Capacity) {
		deadline := time.Now().Add(groupBidWindow)
		updates := map[string]interface{}{
			"status":       models.TaskFull,
			"bid_deadline": deadline,
		}
		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &participant, nil
}

// markLeft marks the participation left and reopens a full task, clearing
// its bidder and cancelling its pending bids. Caller must hold the task row
// lock.
func markLeft(tx *gorm.DB, task *models.Task, userID uint) error {
	var participant models.TaskParticipant
	err := tx.Where("task_id = ? AND user_id = ? AND status = ?",
		task.ID, userID, models.ParticipantActive).First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "task participation", ID: task.ID}
	}
	if err != nil {
		return err
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":  models.ParticipantLeft,
		"left_at": now,
	}
	if err := tx.Model(&participant).Updates(updates).Error; err != nil {
		return err
	}

	if task.Status != models.TaskFull {
		return nil
	}
	count, err := activeCount(tx, task.ID)
	if err != nil {
		return err
	}
	if count >= int64(task.Capacity) {
		return nil
	}
	reopen := map[string]interface{}{
		"status":            models.TaskRecruiting,
		"current_bidder_id": nil,
		"bid_deadline":      nil,
	}
	if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(reopen).Error; err != nil {
		return err
	}
	// Bids do not survive a capacity change.
	return tx.Model(&models.BidRecord{}).
		Where("task_id = ? AND status = ?", task.ID, models.BidPending).
		Update("status", models.BidCancelled).Error
}

func activeCount(tx *gorm.DB, taskID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.TaskParticipant{}).
		Where("task_id = ? AND status = ?", taskID, models.ParticipantActive).
		Count(&count).Error
	return count, err
}

func lockTask(tx *gorm.DB, taskID uint) (*models.Task, error) {
	var task models.Task
	if err := lockForUpdate(tx).First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "task", ID: taskID}
		}
		return nil, err
	}
	return &task, nil
}

func lockGroupTask(tx *gorm.DB, groupTaskID uint) (*models.GroupTask, error) {
	var group models.GroupTask
	if err := lockForUpdate(tx).First(&group, groupTaskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "group task", ID: groupTaskID}
		}
		return nil, err
	}
	return &group, nil
}
