package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/CMoments/Online-life/models"
)

func createStaff(t *testing.T, s *Services, name string, reputation float64) *models.User {
	t.Helper()
	staff := createUser(t, s.DB, name, models.RoleStaff)
	if reputation > 0 {
		seedReputation(t, s.DB, staff.ID, reputation)
	}
	return staff
}

func TestQuorumResolvesToBestReputation(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "poster", models.RoleClient)
	order := createBiddingOrder(t, s, client.ID, 30)
	taskID := *order.TaskID

	scores := []float64{60, 95, 80, 80, 70}
	staff := make([]*models.User, len(scores))
	for i, score := range scores {
		staff[i] = createStaff(t, s, fmt.Sprintf("staff%d", i), score)
	}

	for i := 0; i < 4; i++ {
		if _, err := s.Bids.Bid(taskID, staff[i].ID); err != nil {
			t.Fatalf("bid %d: %v", i, err)
		}
		var loaded models.Task
		s.DB.First(&loaded, taskID)
		if loaded.Status != models.TaskFull || loaded.CurrentBidderID != nil {
			t.Fatalf("task resolved early after %d bids", i+1)
		}
	}

	// The fifth bid reaches the quorum and resolves in the same call.
	if _, err := s.Bids.Bid(taskID, staff[4].ID); err != nil {
		t.Fatalf("quorum bid: %v", err)
	}

	var task models.Task
	s.DB.First(&task, taskID)
	if task.Status != models.TaskAssigned {
		t.Fatalf("task status = %s, want assigned", task.Status)
	}
	if task.CurrentBidderID == nil || *task.CurrentBidderID != staff[1].ID {
		t.Fatalf("winner = %v, want user %d (score 95)", task.CurrentBidderID, staff[1].ID)
	}

	var winning models.BidRecord
	s.DB.Where("task_id = ? AND user_id = ?", taskID, staff[1].ID).First(&winning)
	if winning.Status != models.BidAccepted {
		t.Fatalf("winning bid status = %s", winning.Status)
	}
	var rejected int64
	s.DB.Model(&models.BidRecord{}).
		Where("task_id = ? AND status = ?", taskID, models.BidRejected).
		Count(&rejected)
	if rejected != 4 {
		t.Fatalf("rejected bids = %d, want 4", rejected)
	}

	var loadedOrder models.Order
	s.DB.First(&loadedOrder, order.ID)
	if loadedOrder.Status != models.OrderAssigned {
		t.Fatalf("order status = %s, want assigned", loadedOrder.Status)
	}
	if loadedOrder.StaffID == nil || *loadedOrder.StaffID != staff[1].ID {
		t.Fatalf("order staff = %v, want %d", loadedOrder.StaffID, staff[1].ID)
	}
}

func TestQuorumTieGoesToEarliestBid(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "poster2", models.RoleClient)
	order := createBiddingOrder(t, s, client.ID, 10)
	taskID := *order.TaskID

	staff := make([]*models.User, models.BidQuorum)
	for i := range staff {
		staff[i] = createStaff(t, s, fmt.Sprintf("even%d", i), 85)
		if _, err := s.Bids.Bid(taskID, staff[i].ID); err != nil {
			t.Fatalf("bid %d: %v", i, err)
		}
	}

	var task models.Task
	s.DB.First(&task, taskID)
	if task.CurrentBidderID == nil || *task.CurrentBidderID != staff[0].ID {
		t.Fatalf("winner = %v, want earliest bidder %d", task.CurrentBidderID, staff[0].ID)
	}
}

func TestBidStateChecks(t *testing.T) {
	s := newTestServices(t)
	staff := createStaff(t, s, "checker", 0)
	creator := createUser(t, s.DB, "gt-owner", models.RoleClient)

	// Recruiting tasks are not biddable.
	group := createGroup(t, s, creator.ID)
	recruiting := groupTasks(t, s, group.ID)[0]
	var state *StateError
	if _, err := s.Bids.Bid(recruiting.ID, staff.ID); !errors.As(err, &state) {
		t.Fatalf("bid on recruiting: err = %v, want StateError", err)
	}

	// Expired deadlines close the window.
	client := createUser(t, s.DB, "poster3", models.RoleClient)
	order := createBiddingOrder(t, s, client.ID, 10)
	past := time.Now().Add(-time.Minute)
	s.DB.Model(&models.Task{}).Where("id = ?", *order.TaskID).Update("bid_deadline", past)
	if _, err := s.Bids.Bid(*order.TaskID, staff.ID); !errors.As(err, &state) {
		t.Fatalf("bid after deadline: err = %v, want StateError", err)
	}

	var notFound *NotFoundError
	if _, err := s.Bids.Bid(99999, staff.ID); !errors.As(err, &notFound) {
		t.Fatalf("bid on missing task: err = %v, want NotFoundError", err)
	}
}

func TestBidDuplicatePending(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "poster4", models.RoleClient)
	order := createBiddingOrder(t, s, client.ID, 10)
	staff := createStaff(t, s, "eager", 0)

	if _, err := s.Bids.Bid(*order.TaskID, staff.ID); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	var conflict *ConflictError
	if _, err := s.Bids.Bid(*order.TaskID, staff.ID); !errors.As(err, &conflict) {
		t.Fatalf("second bid: err = %v, want ConflictError", err)
	}
}

func TestBidRejectedAfterOrderCancel(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "poster5", models.RoleClient)
	order := createBiddingOrder(t, s, client.ID, 10)
	staff := createStaff(t, s, "tardy", 0)

	if err := s.Orders.Cancel(order.ID, client.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	var state *StateError
	if _, err := s.Bids.Bid(*order.TaskID, staff.ID); !errors.As(err, &state) {
		t.Fatalf("bid on cancelled order's task: err = %v, want StateError", err)
	}
}

func TestAcceptBidBeforeQuorum(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "poster6", models.RoleClient)
	order := createBiddingOrder(t, s, client.ID, 10)
	taskID := *order.TaskID

	first := createStaff(t, s, "pick-me", 70)
	second := createStaff(t, s, "also-ran", 90)
	bid, err := s.Bids.Bid(taskID, first.ID)
	if err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if _, err := s.Bids.Bid(taskID, second.ID); err != nil {
		t.Fatalf("second bid: %v", err)
	}

	// Only the order owner may accept.
	var perm *PermissionError
	if err := s.Bids.AcceptBid(taskID, bid.ID, second.ID); !errors.As(err, &perm) {
		t.Fatalf("foreign accept: err = %v, want PermissionError", err)
	}

	// The owner can pick a lower-reputation bid explicitly.
	if err := s.Bids.AcceptBid(taskID, bid.ID, client.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	var task models.Task
	s.DB.First(&task, taskID)
	if task.CurrentBidderID == nil || *task.CurrentBidderID != first.ID {
		t.Fatalf("winner = %v, want %d", task.CurrentBidderID, first.ID)
	}
	var other models.BidRecord
	s.DB.Where("task_id = ? AND user_id = ?", taskID, second.ID).First(&other)
	if other.Status != models.BidRejected {
		t.Fatalf("losing bid status = %s", other.Status)
	}
	var loadedOrder models.Order
	s.DB.First(&loadedOrder, order.ID)
	if loadedOrder.Status != models.OrderAssigned || *loadedOrder.StaffID != first.ID {
		t.Fatalf("order after accept = %+v", loadedOrder)
	}

	// Resolution is terminal for the task.
	var state *StateError
	if err := s.Bids.AcceptBid(taskID, bid.ID, client.ID); !errors.As(err, &state) {
		t.Fatalf("re-accept: err = %v, want StateError", err)
	}
}

func TestAcceptBidOnGroupTask(t *testing.T) {
	s := newTestServices(t)
	creator := createUser(t, s.DB, "gt-owner2", models.RoleClient)
	group := createGroup(t, s, creator.ID)
	for i := 0; i < 4; i++ {
		member := createUser(t, s.DB, fmt.Sprintf("gtm%d", i), models.RoleClient)
		if _, err := s.GroupTasks.Join(group.ID, member.ID); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	task := groupTasks(t, s, group.ID)[0]

	staff := createStaff(t, s, "gt-bidder", 0)
	bid, err := s.Bids.Bid(task.ID, staff.ID)
	if err != nil {
		t.Fatalf("bid: %v", err)
	}

	outsider := createUser(t, s.DB, "not-creator", models.RoleClient)
	var perm *PermissionError
	if err := s.Bids.AcceptBid(task.ID, bid.ID, outsider.ID); !errors.As(err, &perm) {
		t.Fatalf("outsider accept: err = %v, want PermissionError", err)
	}
	if err := s.Bids.AcceptBid(task.ID, bid.ID, creator.ID); err != nil {
		t.Fatalf("creator accept: %v", err)
	}

	var loaded models.Task
	s.DB.First(&loaded, task.ID)
	if loaded.Status != models.TaskAssigned || *loaded.CurrentBidderID != staff.ID {
		t.Fatalf("task after accept = %+v", loaded)
	}
}

func TestListBiddableAndUserBids(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "poster7", models.RoleClient)
	order := createBiddingOrder(t, s, client.ID, 10)
	staff := createStaff(t, s, "lister", 0)

	if _, err := s.Bids.Bid(*order.TaskID, staff.ID); err != nil {
		t.Fatalf("bid: %v", err)
	}

	biddable, total, err := s.Bids.ListBiddable("", 1, 10)
	if err != nil {
		t.Fatalf("list biddable: %v", err)
	}
	if total != 1 || len(biddable) != 1 {
		t.Fatalf("total = %d len = %d, want 1/1", total, len(biddable))
	}
	if biddable[0].PendingBids != 1 {
		t.Fatalf("pending bids = %d, want 1", biddable[0].PendingBids)
	}

	bids, total, err := s.Bids.UserBids(staff.ID, "", 1, 10)
	if err != nil {
		t.Fatalf("user bids: %v", err)
	}
	if total != 1 || len(bids) != 1 {
		t.Fatalf("user bids total = %d len = %d", total, len(bids))
	}
	if bids[0].Bid.Status != models.BidPending || bids[0].IsCurrentBidder {
		t.Fatalf("user bid entry = %+v", bids[0])
	}

	if _, total, err = s.Bids.UserBids(staff.ID, models.BidAccepted, 1, 10); err != nil || total != 0 {
		t.Fatalf("status filter: total = %d err = %v", total, err)
	}
}
