package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Services bundles the engine's components over one shared *gorm.DB. Each
// external operation runs as a single transaction against that DB; the store
// is the only synchronization primitive.
type Services struct {
	DB         *gorm.DB
	Points     *PointsService
	Reputation *ReputationService
	Orders     *OrderService
	GroupTasks *GroupTaskService
	Bids       *BidService
	Payments   *PaymentService
}

func New(db *gorm.DB) *Services {
	points := &PointsService{DB: db}
	reputation := &ReputationService{DB: db}
	orders := &OrderService{DB: db}
	bids := &BidService{DB: db, Reputation: reputation}
	return &Services{
		DB:         db,
		Points:     points,
		Reputation: reputation,
		Orders:     orders,
		GroupTasks: &GroupTaskService{DB: db},
		Bids:       bids,
		Payments:   &PaymentService{DB: db, Points: points, Reputation: reputation},
	}
}

// lockForUpdate adds SELECT ... FOR UPDATE on dialects that support it.
// SQLite (used by the test suite) has no row locks; its writer lock already
// serializes the transactions involved.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
