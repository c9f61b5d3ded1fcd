package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/CMoments/Online-life/models"
)

func createGroup(t *testing.T, s *Services, creatorID uint) *models.GroupTask {
	t.Helper()
	group, err := s.GroupTasks.Create(creatorID, CreateGroupTaskInput{
		Title:            "weekend grocery run",
		TaskType:         "shopping",
		Location:         "North Market",
		EstimatedMinutes: 45,
	})
	if err != nil {
		t.Fatalf("create group task: %v", err)
	}
	return group
}

func groupTasks(t *testing.T, s *Services, groupID uint) []models.Task {
	t.Helper()
	var tasks []models.Task
	if err := s.DB.Where("group_task_id = ?", groupID).Order("id ASC").Find(&tasks).Error; err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	return tasks
}

func TestGroupTaskCreateEnrollsCreator(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer", models.RoleClient)

	group := createGroup(t, s, creator.ID)
	tasks := groupTasks(t, s, group.ID)
	if len(tasks) != 1 {
		t.Fatalf("task count = %d, want 1", len(tasks))
	}
	if tasks[0].Status != models.TaskRecruiting || tasks[0].Capacity != models.DefaultTaskCapacity {
		t.Fatalf("first task = %+v", tasks[0])
	}

	var participants int64
	s.DB.Model(&models.TaskParticipant{}).
		Where("task_id = ? AND user_id = ? AND status = ?", tasks[0].ID, creator.ID, models.ParticipantActive).
		Count(&participants)
	if participants != 1 {
		t.Fatalf("creator participations = %d, want 1", participants)
	}
}

func TestGroupTaskCreateValidation(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer2", models.RoleClient)

	var validation *ValidationError
	if _, err := s.GroupTasks.Create(creator.ID, CreateGroupTaskInput{TaskType: "shopping"}); !errors.As(err, &validation) {
		t.Fatalf("missing title: err = %v, want ValidationError", err)
	}
	if _, err := s.GroupTasks.Create(creator.ID, CreateGroupTaskInput{Title: "x", TaskType: "string"}); !errors.As(err, &validation) {
		t.Fatalf("placeholder task type: err = %v, want ValidationError", err)
	}
}

func TestGroupTaskFillsAtCapacity(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer3", models.RoleClient)
	group := createGroup(t, s, creator.ID)

	// Creator occupies one slot; four joins fill the capacity-5 task.
	for i := 0; i < 4; i++ {
		member := createUser(t, s.DB, fmt.Sprintf("joiner%d", i), models.RoleClient)
		task, err := s.GroupTasks.Join(group.ID, member.ID)
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		if i < 3 && task.Status != models.TaskRecruiting {
			t.Fatalf("join %d: status = %s, want recruiting", i, task.Status)
		}
		if i == 3 {
			if task.Status != models.TaskFull {
				t.Fatalf("filling join: status = %s, want full", task.Status)
			}
			if task.BidDeadline == nil {
				t.Fatalf("full task has no bid deadline")
			}
			window := time.Until(*task.BidDeadline)
			if window < 7*24*time.Hour-time.Minute || window > 7*24*time.Hour+time.Minute {
				t.Fatalf("deadline window %s, want about 7 days", window)
			}
		}
	}
}

func TestGroupTaskSpawnsNextTaskWhenFull(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer4", models.RoleClient)
	group := createGroup(t, s, creator.ID)

	for i := 0; i < 4; i++ {
		member := createUser(t, s.DB, fmt.Sprintf("filler%d", i), models.RoleClient)
		if _, err := s.GroupTasks.Join(group.ID, member.ID); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	// Sixth participant lands on a fresh recruiting task.
	overflow := createUser(t, s.DB, "overflow", models.RoleClient)
	task, err := s.GroupTasks.Join(group.ID, overflow.ID)
	if err != nil {
		t.Fatalf("overflow join: %v", err)
	}
	if task.Status != models.TaskRecruiting || task.BidDeadline != nil {
		t.Fatalf("overflow task = %+v", task)
	}

	tasks := groupTasks(t, s, group.ID)
	if len(tasks) != 2 {
		t.Fatalf("task count = %d, want 2", len(tasks))
	}
	if task.ID == tasks[0].ID {
		t.Fatalf("overflow landed on the full task")
	}
}

func TestGroupTaskDuplicateJoin(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer5", models.RoleClient)
	group := createGroup(t, s, creator.ID)

	var conflict *ConflictError
	if _, err := s.GroupTasks.Join(group.ID, creator.ID); !errors.As(err, &conflict) {
		t.Fatalf("creator rejoin: err = %v, want ConflictError", err)
	}

	member := createUser(t, s.DB, "once", models.RoleClient)
	if _, err := s.GroupTasks.Join(group.ID, member.ID); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := s.GroupTasks.Join(group.ID, member.ID); !errors.As(err, &conflict) {
		t.Fatalf("second join: err = %v, want ConflictError", err)
	}
}

func TestGroupTaskJoinEnded(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer6", models.RoleClient)
	group := createGroup(t, s, creator.ID)

	now := time.Now()
	if err := s.DB.Model(&models.GroupTask{}).Where("id = ?", group.ID).
		Update("ended_at", now).Error; err != nil {
		t.Fatalf("end group: %v", err)
	}
	member := createUser(t, s.DB, "late", models.RoleClient)
	var state *StateError
	if _, err := s.GroupTasks.Join(group.ID, member.ID); !errors.As(err, &state) {
		t.Fatalf("join ended: err = %v, want StateError", err)
	}
}

func TestLeaveTaskReopensAndReassigns(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer7", models.RoleClient)
	group := createGroup(t, s, creator.ID)

	members := make([]*models.User, 0, 4)
	var full *models.Task
	for i := 0; i < 4; i++ {
		member := createUser(t, s.DB, fmt.Sprintf("crew%d", i), models.RoleClient)
		members = append(members, member)
		task, err := s.GroupTasks.Join(group.ID, member.ID)
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		full = task
	}
	if full.Status != models.TaskFull {
		t.Fatalf("task not full after seeding")
	}

	// A pending bid on the now-full task, to be cancelled by the vacancy.
	bidder := createUser(t, s.DB, "bidder-gt", models.RoleStaff)
	if _, err := s.Bids.Bid(full.ID, bidder.ID); err != nil {
		t.Fatalf("bid: %v", err)
	}

	next, err := s.GroupTasks.LeaveTask(full.ID, members[0].ID)
	if err != nil {
		t.Fatalf("leave task: %v", err)
	}
	if next.ID == full.ID {
		t.Fatalf("leaver reassigned to the task they left")
	}

	var reopened models.Task
	s.DB.First(&reopened, full.ID)
	if reopened.Status != models.TaskRecruiting {
		t.Fatalf("vacated task status = %s, want recruiting", reopened.Status)
	}
	if reopened.BidDeadline != nil || reopened.CurrentBidderID != nil {
		t.Fatalf("vacated task kept deadline or bidder: %+v", reopened)
	}
	var bid models.BidRecord
	s.DB.Where("task_id = ?", full.ID).First(&bid)
	if bid.Status != models.BidCancelled {
		t.Fatalf("bid status = %s, want cancelled", bid.Status)
	}

	// The leaver is active on the new task and left on the old one.
	var active int64
	s.DB.Model(&models.TaskParticipant{}).
		Where("task_id = ? AND user_id = ? AND status = ?", next.ID, members[0].ID, models.ParticipantActive).
		Count(&active)
	if active != 1 {
		t.Fatalf("leaver not active on new task")
	}
	var left int64
	s.DB.Model(&models.TaskParticipant{}).
		Where("task_id = ? AND user_id = ? AND status = ?", full.ID, members[0].ID, models.ParticipantLeft).
		Count(&left)
	if left != 1 {
		t.Fatalf("leaver still active on old task")
	}
}

func TestLeaveTaskRejectedOnceAssigned(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer8", models.RoleClient)
	group := createGroup(t, s, creator.ID)

	task := groupTasks(t, s, group.ID)[0]
	if err := s.DB.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("status", models.TaskAssigned).Error; err != nil {
		t.Fatalf("mark assigned: %v", err)
	}
	var state *StateError
	if _, err := s.GroupTasks.LeaveTask(task.ID, creator.ID); !errors.As(err, &state) {
		t.Fatalf("leave assigned: err = %v, want StateError", err)
	}
}

func TestLeaveGroupTaskRemovesEverywhere(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer9", models.RoleClient)
	group := createGroup(t, s, creator.ID)
	member := createUser(t, s.DB, "quitter", models.RoleClient)

	if _, err := s.GroupTasks.Join(group.ID, member.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.GroupTasks.LeaveGroupTask(group.ID, member.ID); err != nil {
		t.Fatalf("leave group: %v", err)
	}

	var memberships int64
	s.DB.Model(&models.GroupTaskMember{}).
		Where("group_task_id = ? AND user_id = ?", group.ID, member.ID).
		Count(&memberships)
	if memberships != 0 {
		t.Fatalf("membership survived")
	}
	var active int64
	s.DB.Model(&models.TaskParticipant{}).
		Where("user_id = ? AND status = ?", member.ID, models.ParticipantActive).
		Count(&active)
	if active != 0 {
		t.Fatalf("active participations survived")
	}

	// Leaving again: the membership is gone.
	var notFound *NotFoundError
	if err := s.GroupTasks.LeaveGroupTask(group.ID, member.ID); !errors.As(err, &notFound) {
		t.Fatalf("second leave: err = %v, want NotFoundError", err)
	}
}

func TestGroupTaskListAndStatus(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "organizer10", models.RoleClient)
	group := createGroup(t, s, creator.ID)
	member := createUser(t, s.DB, "viewer", models.RoleClient)
	if _, err := s.GroupTasks.Join(group.ID, member.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	views, total, err := s.GroupTasks.ListAvailable("shopping", 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(views) != 1 {
		t.Fatalf("total = %d len = %d, want 1/1", total, len(views))
	}
	if views[0].ParticipantCount != 2 {
		t.Fatalf("participant count = %d, want 2", views[0].ParticipantCount)
	}

	if _, total, err = s.GroupTasks.ListAvailable("cleaning", 1, 10); err != nil || total != 0 {
		t.Fatalf("type filter: total = %d err = %v", total, err)
	}

	status, err := s.GroupTasks.Status(group.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status.Tasks) != 1 || status.Tasks[0].ActiveCount != 2 {
		t.Fatalf("status view = %+v", status)
	}
	if len(status.Tasks[0].Participants) != 2 {
		t.Fatalf("participant ids = %v", status.Tasks[0].Participants)
	}
}
