package services

import (
	"errors"
	"strings"
	"time"

	"github.com/CMoments/Online-life/models"
	"github.com/CMoments/Online-life/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fare is linear in the externally estimated duration.
var (
	baseFare      = decimal.NewFromInt(5)
	ratePerMinute = decimal.RequireFromString("0.50")
)

// Bid windows for order-spawned tasks.
const (
	immediateBidWindow = 2 * time.Hour
	fallbackBidWindow  = 24 * time.Hour
	scheduledBidLead   = time.Hour
)

// OrderService drives the single-order state machine:
// pending -> assigned -> in_progress -> completed -> paid, with
// pending|assigned -> cancelled as the alternate terminal.
type OrderService struct {
	DB *gorm.DB
}

type CreateOrderInput struct {
	OrderType        models.OrderType
	AssignmentMode   models.AssignmentMode
	TaskType         string
	Description      string
	Pickup           string
	Dropoff          string
	EstimatedMinutes int
	ScheduledAt      *time.Time
}

// Create validates the input, derives the fare from the estimated duration
// and persists the order. Bidding orders also spawn their biddable task with
// a deadline: two hours out for immediate orders, one hour before the
// scheduled time for scheduled ones (24h when no time was given).
func (s *OrderService) Create(clientID uint, in CreateOrderInput) (*models.Order, error) {
	if err := validateOrderInput(&in); err != nil {
		return nil, err
	}

	amount := baseFare.Add(ratePerMinute.Mul(decimal.NewFromInt(int64(in.EstimatedMinutes))))

	order := models.Order{
		OrderNo:          utils.GenerateOrderNo(clientID),
		ClientID:         clientID,
		OrderType:        in.OrderType,
		Status:           models.OrderPending,
		AssignmentMode:   in.AssignmentMode,
		AssignmentStatus: models.AssignmentOpen,
		Pickup:           in.Pickup,
		Dropoff:          in.Dropoff,
		Description:      in.Description,
		EstimatedMinutes: in.EstimatedMinutes,
		Amount:           amount,
		ScheduledAt:      in.ScheduledAt,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if in.AssignmentMode == models.AssignBidding {
			deadline := bidDeadlineFor(&in)
			task := models.Task{
				TaskType:         in.TaskType,
				Description:      in.Description,
				Location:         in.Pickup,
				Capacity:         1,
				Status:           models.TaskFull,
				EstimatedMinutes: in.EstimatedMinutes,
				BidDeadline:      &deadline,
			}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
			order.TaskID = &task.ID
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Get returns an order; only the owning client and the assigned staff member
// may read it.
func (s *OrderService) Get(orderID, actorID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, err
	}
	if order.ClientID != actorID && (order.StaffID == nil || *order.StaffID != actorID) {
		return nil, &PermissionError{Reason: "not a party to this order"}
	}
	return &order, nil
}

type OrderFilter struct {
	ClientID  uint
	StaffID   uint
	Status    models.OrderStatus
	OrderType models.OrderType
	Page      int
	PerPage   int
}

// List returns orders matching the filter, newest first, with the total count.
func (s *OrderService) List(f OrderFilter) ([]models.Order, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 10
	}
	query := s.DB.Model(&models.Order{})
	if f.ClientID != 0 {
		query = query.Where("client_id = ?", f.ClientID)
	}
	if f.StaffID != 0 {
		query = query.Where("staff_id = ?", f.StaffID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.OrderType != "" {
		query = query.Where("order_type = ?", f.OrderType)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	err := query.Order("id DESC").Offset((f.Page - 1) * f.PerPage).Limit(f.PerPage).Find(&orders).Error
	return orders, total, err
}

// Assign hands a pending, open order to a staff member. Used for the direct
// flow; the bidding flow goes through BidService, which updates the order
// inside its own resolution transaction.
func (s *OrderService) Assign(orderID, staffID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var staff models.User
		if err := tx.First(&staff, staffID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "user", ID: staffID}
			}
			return err
		}
		if staff.Role != models.RoleStaff {
			return &ValidationError{Field: "staff_id", Reason: "user is not a staff member"}
		}

		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending || order.AssignmentStatus != models.AssignmentOpen {
			return &StateError{Entity: "order", State: string(order.Status), Op: "assign"}
		}
		updates := map[string]interface{}{
			"staff_id":          staffID,
			"status":            models.OrderAssigned,
			"assignment_status": models.AssignmentAssigned,
		}
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return err
		}
		if order.TaskID != nil {
			taskUpdates := map[string]interface{}{
				"current_bidder_id": staffID,
				"status":            models.TaskAssigned,
			}
			if err := tx.Model(&models.Task{}).Where("id = ?", *order.TaskID).Updates(taskUpdates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Start moves an assigned order to in_progress; only the assigned staff
// member may do it.
func (s *OrderService) Start(orderID, staffID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.StaffID == nil || *order.StaffID != staffID {
			return &PermissionError{Reason: "order is not assigned to you"}
		}
		if order.Status != models.OrderAssigned {
			return &StateError{Entity: "order", State: string(order.Status), Op: "start"}
		}
		return tx.Model(order).Update("status", models.OrderInProgress).Error
	})
}

// Complete marks the work done and stamps the completion time. Only the
// assigned staff member may complete, and only from assigned or in_progress.
func (s *OrderService) Complete(orderID, staffID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.StaffID == nil || *order.StaffID != staffID {
			return &PermissionError{Reason: "order is not assigned to you"}
		}
		if order.Status != models.OrderAssigned && order.Status != models.OrderInProgress {
			return &StateError{Entity: "order", State: string(order.Status), Op: "complete"}
		}
		now := time.Now()
		updates := map[string]interface{}{
			"status":       models.OrderCompleted,
			"completed_at": now,
		}
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return err
		}
		if order.TaskID != nil {
			if err := tx.Model(&models.Task{}).Where("id = ?", *order.TaskID).
				Update("status", models.TaskCompleted).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Cancel terminates a pending or assigned order. Only the owning client may
// cancel; any assignment is released and pending bids on the linked task are
// cancelled.
func (s *OrderService) Cancel(orderID, clientID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.ClientID != clientID {
			return &PermissionError{Reason: "not your order"}
		}
		if order.Status != models.OrderPending && order.Status != models.OrderAssigned {
			return &StateError{Entity: "order", State: string(order.Status), Op: "cancel"}
		}
		updates := map[string]interface{}{
			"status":            models.OrderCancelled,
			"staff_id":          nil,
			"assignment_status": models.AssignmentClosed,
		}
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return err
		}
		if order.TaskID != nil {
			if err := tx.Model(&models.BidRecord{}).
				Where("task_id = ? AND status = ?", *order.TaskID, models.BidPending).
				Update("status", models.BidCancelled).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Task{}).Where("id = ?", *order.TaskID).
				Update("current_bidder_id", nil).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type AvailableOrder struct {
	Order      models.Order `json:"order"`
	ClientName string       `json:"client_name"`
	BidCount   int64        `json:"bid_count"`
}

// ListAvailable is the staff view: pending bidding orders whose task deadline
// has not passed.
func (s *OrderService) ListAvailable(taskType string, page, perPage int) ([]AvailableOrder, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	query := s.DB.Model(&models.Order{}).
		Joins("JOIN tasks ON tasks.id = orders.task_id").
		Where("orders.status = ? AND orders.assignment_status = ?", models.OrderPending, models.AssignmentOpen).
		Where("tasks.bid_deadline > ?", time.Now())
	if taskType != "" {
		query = query.Where("tasks.task_type = ?", taskType)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	if err := query.Order("orders.id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	available := make([]AvailableOrder, 0, len(orders))
	for _, order := range orders {
		entry := AvailableOrder{Order: order}
		var client models.User
		if err := s.DB.Select("name").First(&client, order.ClientID).Error; err == nil {
			entry.ClientName = client.Name
		}
		if order.TaskID != nil {
			s.DB.Model(&models.BidRecord{}).
				Where("task_id = ? AND status = ?", *order.TaskID, models.BidPending).
				Count(&entry.BidCount)
		}
		available = append(available, entry)
	}
	return available, total, nil
}

type OrderStatistics struct {
	Total      int64 `json:"total_orders"`
	Pending    int64 `json:"pending_orders"`
	InProgress int64 `json:"in_progress_orders"`
	Completed  int64 `json:"completed_orders"`
	Cancelled  int64 `json:"cancelled_orders"`
}

// Statistics counts a client's orders per lifecycle state.
func (s *OrderService) Statistics(clientID uint) (*OrderStatistics, error) {
	stats := OrderStatistics{}
	base := func() *gorm.DB {
		return s.DB.Model(&models.Order{}).Where("client_id = ?", clientID)
	}
	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	counts := map[models.OrderStatus]*int64{
		models.OrderPending:    &stats.Pending,
		models.OrderInProgress: &stats.InProgress,
		models.OrderCompleted:  &stats.Completed,
		models.OrderCancelled:  &stats.Cancelled,
	}
	for status, dest := range counts {
		if err := base().Where("status = ?", status).Count(dest).Error; err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, err
	}
	return &order, nil
}

func validateOrderInput(in *CreateOrderInput) error {
	in.TaskType = strings.TrimSpace(in.TaskType)
	in.Pickup = strings.TrimSpace(in.Pickup)
	in.Dropoff = strings.TrimSpace(in.Dropoff)
	in.Description = strings.TrimSpace(in.Description)

	if in.OrderType == "" {
		in.OrderType = models.OrderImmediate
	}
	if in.OrderType != models.OrderImmediate && in.OrderType != models.OrderScheduled {
		return &ValidationError{Field: "order_type", Reason: "must be immediate or scheduled"}
	}
	if in.AssignmentMode == "" {
		in.AssignmentMode = models.AssignBidding
	}
	if in.AssignmentMode != models.AssignBidding && in.AssignmentMode != models.AssignDirect {
		return &ValidationError{Field: "assignment_mode", Reason: "must be bidding or direct"}
	}
	for field, value := range map[string]string{
		"task_type": in.TaskType,
		"pickup":    in.Pickup,
		"dropoff":   in.Dropoff,
	} {
		if value == "" || isPlaceholder(value) {
			return &ValidationError{Field: field, Reason: "is required"}
		}
	}
	if in.EstimatedMinutes <= 0 {
		return &ValidationError{Field: "estimated_minutes", Reason: "must be greater than zero"}
	}
	if in.OrderType == models.OrderScheduled && in.ScheduledAt != nil && in.ScheduledAt.Before(time.Now()) {
		return &ValidationError{Field: "scheduled_at", Reason: "must be in the future"}
	}
	return nil
}

// isPlaceholder rejects obvious filler the UI may send for untouched fields.
func isPlaceholder(v string) bool {
	switch strings.ToLower(v) {
	case "string", "null", "undefined", "n/a", "-":
		return true
	}
	return false
}

func bidDeadlineFor(in *CreateOrderInput) time.Time {
	if in.OrderType == models.OrderScheduled {
		if in.ScheduledAt != nil {
			return in.ScheduledAt.Add(-scheduledBidLead)
		}
		return time.Now().Add(fallbackBidWindow)
	}
	return time.Now().Add(immediateBidWindow)
}
