package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/CMoments/Online-life/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDBSeq names each in-memory database uniquely; a plain ":memory:" DSN
// gives every pooled connection its own empty database.
var testDBSeq atomic.Uint64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.GroupTask{},
		&models.GroupTaskMember{},
		&models.Task{},
		&models.TaskParticipant{},
		&models.BidRecord{},
		&models.PointsAccount{},
		&models.PointsEntry{},
		&models.Review{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestServices(t *testing.T) *Services {
	t.Helper()
	return New(testDB(t))
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()
	user := models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "x",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return &user
}

// seedReputation inserts review rows so the subject's average equals score.
func seedReputation(t *testing.T, db *gorm.DB, subjectID uint, score float64) {
	t.Helper()
	reviewer := createUser(t, db, fmt.Sprintf("rev-for-%d-%.0f", subjectID, score*10), models.RoleClient)
	review := models.Review{
		ReviewerID: reviewer.ID,
		SubjectID:  subjectID,
		Score:      score,
	}
	if err := db.Create(&review).Error; err != nil {
		t.Fatalf("seed review: %v", err)
	}
}

func createBiddingOrder(t *testing.T, s *Services, clientID uint, minutes int) *models.Order {
	t.Helper()
	order, err := s.Orders.Create(clientID, CreateOrderInput{
		OrderType:        models.OrderImmediate,
		AssignmentMode:   models.AssignBidding,
		TaskType:         "delivery",
		Pickup:           "Gate 3",
		Dropoff:          "Dorm 12",
		EstimatedMinutes: minutes,
	})
	if err != nil {
		t.Fatalf("create bidding order: %v", err)
	}
	return order
}

func createDirectOrder(t *testing.T, s *Services, clientID uint, minutes int) *models.Order {
	t.Helper()
	order, err := s.Orders.Create(clientID, CreateOrderInput{
		OrderType:        models.OrderImmediate,
		AssignmentMode:   models.AssignDirect,
		TaskType:         "errand",
		Pickup:           "Cafeteria",
		Dropoff:          "Library",
		EstimatedMinutes: minutes,
	})
	if err != nil {
		t.Fatalf("create direct order: %v", err)
	}
	return order
}

// completeOrder walks a direct order to completed with the given staff.
func completeOrder(t *testing.T, s *Services, orderID, staffID uint) {
	t.Helper()
	if err := s.Orders.Assign(orderID, staffID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := s.Orders.Start(orderID, staffID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Orders.Complete(orderID, staffID); err != nil {
		t.Fatalf("complete: %v", err)
	}
}
