package models

import "time"

type TaskStatus string

const (
	TaskRecruiting TaskStatus = "recruiting"
	TaskFull       TaskStatus = "full"
	TaskAssigned   TaskStatus = "assigned"
	TaskCompleted  TaskStatus = "completed"
)

// DefaultTaskCapacity is the participant limit for a freshly spawned task.
const DefaultTaskCapacity = 5

// Task is a capacity-bounded work unit, the object staff bid on. Tasks
// spawned by a group campaign carry a GroupTaskID; tasks spawned by a single
// order do not and start out biddable.
type Task struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	GroupTaskID      *uint      `gorm:"index" json:"group_task_id"`
	TaskType         string     `gorm:"type:varchar(30);not null" json:"task_type"`
	Description      string     `gorm:"type:text" json:"description"`
	Location         string     `gorm:"size:256" json:"location"`
	Capacity         int        `gorm:"not null;default:5" json:"capacity"`
	Status           TaskStatus `gorm:"type:varchar(15);not null;default:'recruiting';index" json:"status"`
	EstimatedMinutes int        `gorm:"not null;default:0" json:"estimated_minutes"`
	CurrentBidderID  *uint      `gorm:"index" json:"current_bidder_id"`
	BidDeadline      *time.Time `json:"bid_deadline"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

// GroupTask is a recruitment campaign. New tasks under it are cloned from the
// template fields below whenever every existing task is full.
type GroupTask struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	CreatorID        uint       `gorm:"not null;index" json:"creator_id"`
	Title            string     `gorm:"size:100;not null" json:"title"`
	TaskType         string     `gorm:"type:varchar(30);not null" json:"task_type"`
	Description      string     `gorm:"type:text" json:"description"`
	Location         string     `gorm:"size:256" json:"location"`
	EstimatedMinutes int        `gorm:"not null;default:0" json:"estimated_minutes"`
	EndedAt          *time.Time `json:"ended_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"-"`
}

func (GroupTask) TableName() string {
	return "group_tasks"
}

type ParticipantStatus string

const (
	ParticipantActive ParticipantStatus = "active"
	ParticipantLeft   ParticipantStatus = "left"
)

type TaskParticipant struct {
	ID       uint              `gorm:"primaryKey" json:"id"`
	TaskID   uint              `gorm:"not null;index:idx_task_user" json:"task_id"`
	UserID   uint              `gorm:"not null;index:idx_task_user;index" json:"user_id"`
	Status   ParticipantStatus `gorm:"type:varchar(10);not null;default:'active'" json:"status"`
	JoinedAt time.Time         `json:"joined_at"`
	LeftAt   *time.Time        `json:"left_at"`
}

func (TaskParticipant) TableName() string {
	return "task_participants"
}

// GroupTaskMember records campaign membership, one row per (campaign, user).
type GroupTaskMember struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GroupTaskID uint      `gorm:"not null;uniqueIndex:uniq_group_user" json:"group_task_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:uniq_group_user" json:"user_id"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (GroupTaskMember) TableName() string {
	return "group_task_members"
}
