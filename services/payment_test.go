package services

import (
	"errors"
	"testing"

	"github.com/CMoments/Online-life/models"

	"github.com/shopspring/decimal"
)

// payableOrder walks a direct order to completed so it can be paid.
func payableOrder(t *testing.T, s *Services, clientID uint, minutes int) *models.Order {
	t.Helper()
	staff := createUser(t, s.DB, "settle-staff", models.RoleStaff)
	order := createDirectOrder(t, s, clientID, minutes)
	completeOrder(t, s, order.ID, staff.ID)
	var loaded models.Order
	if err := s.DB.First(&loaded, order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return &loaded
}

func TestPayFullCashEarnsReward(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "payer1", models.RoleClient)
	order := payableOrder(t, s, client.ID, 30) // amount 20.00

	result, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount: order.Amount,
		Method: "alipay",
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !result.CashPaid.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("cash paid = %s, want 20.00", result.CashPaid)
	}
	if result.RewardPoints != 2000 {
		t.Fatalf("reward = %d, want 2000", result.RewardPoints)
	}
	if result.Warning != "" {
		t.Fatalf("unexpected warning: %q", result.Warning)
	}

	var loaded models.Order
	s.DB.First(&loaded, order.ID)
	if loaded.Status != models.OrderPaid || loaded.AssignmentStatus != models.AssignmentClosed {
		t.Fatalf("order after pay = %s/%s", loaded.Status, loaded.AssignmentStatus)
	}
	balance, _ := s.Points.GetBalance(client.ID)
	if balance != 2000 {
		t.Fatalf("balance = %d, want 2000", balance)
	}
	var entry models.PointsEntry
	if err := s.DB.Where("user_id = ? AND tx_type = ?", client.ID, models.PointsAdd).First(&entry).Error; err != nil {
		t.Fatalf("reward entry: %v", err)
	}
	if entry.OrderID == nil || *entry.OrderID != order.ID {
		t.Fatalf("reward entry not tied to order: %+v", entry)
	}
}

func TestPayWithPointsRequiresReputation(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "payer2", models.RoleClient)
	order := payableOrder(t, s, client.ID, 30)

	if err := s.Points.AddPoints(client.ID, 5000, models.PointsAdd, "seed", nil); err != nil {
		t.Fatalf("seed points: %v", err)
	}
	seedReputation(t, s.DB, client.ID, 79)

	_, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount:      order.Amount,
		PointsToUse: 500,
		Method:      "wechat",
	})
	var perm *PermissionError
	if !errors.As(err, &perm) {
		t.Fatalf("below gate: err = %v, want PermissionError", err)
	}
	// The rejected attempt must not move points.
	balance, _ := s.Points.GetBalance(client.ID)
	if balance != 5000 {
		t.Fatalf("balance = %d, want 5000", balance)
	}
}

func TestPayMixedPointsAndCash(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "payer3", models.RoleClient)
	order := payableOrder(t, s, client.ID, 30) // amount 20.00

	if err := s.Points.AddPoints(client.ID, 5000, models.PointsAdd, "seed", nil); err != nil {
		t.Fatalf("seed points: %v", err)
	}
	seedReputation(t, s.DB, client.ID, 80) // exactly at the gate

	result, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount:      order.Amount,
		PointsToUse: 1500, // covers 15.00
		Method:      "bank_card",
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if result.PointsUsed != 1500 {
		t.Fatalf("points used = %d", result.PointsUsed)
	}
	if !result.CashPaid.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("cash paid = %s, want 5.00", result.CashPaid)
	}
	// floor(5.00) * 100 reward on the cash portion.
	if result.RewardPoints != 500 {
		t.Fatalf("reward = %d, want 500", result.RewardPoints)
	}
	balance, _ := s.Points.GetBalance(client.ID)
	if balance != 5000-1500+500 {
		t.Fatalf("balance = %d, want 4000", balance)
	}
}

func TestPayAllPointsNoMethodNeeded(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "payer4", models.RoleClient)
	order := payableOrder(t, s, client.ID, 30) // amount 20.00

	if err := s.Points.AddPoints(client.ID, 3000, models.PointsAdd, "seed", nil); err != nil {
		t.Fatalf("seed points: %v", err)
	}
	seedReputation(t, s.DB, client.ID, 92)

	result, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount:      order.Amount,
		PointsToUse: 2000,
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !result.CashPaid.IsZero() {
		t.Fatalf("cash paid = %s, want 0", result.CashPaid)
	}
	if result.RewardPoints != 0 {
		t.Fatalf("reward = %d, want 0 for a pure points payment", result.RewardPoints)
	}
	balance, _ := s.Points.GetBalance(client.ID)
	if balance != 1000 {
		t.Fatalf("balance = %d, want 1000", balance)
	}
}

func TestPayValidation(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "payer5", models.RoleClient)
	order := payableOrder(t, s, client.ID, 30)
	seedReputation(t, s.DB, client.ID, 95)
	if err := s.Points.AddPoints(client.ID, 10000, models.PointsAdd, "seed", nil); err != nil {
		t.Fatalf("seed points: %v", err)
	}

	var validation *ValidationError
	if _, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount: decimal.Zero, Method: "alipay",
	}); !errors.As(err, &validation) {
		t.Fatalf("zero amount: err = %v, want ValidationError", err)
	}
	if _, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount: decimal.RequireFromString("19.99"), Method: "alipay",
	}); !errors.As(err, &validation) {
		t.Fatalf("wrong amount: err = %v, want ValidationError", err)
	}
	if _, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount: order.Amount, PointsToUse: 2500, Method: "alipay",
	}); !errors.As(err, &validation) {
		t.Fatalf("points over amount: err = %v, want ValidationError", err)
	}
	if _, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount: order.Amount, Method: "cheque",
	}); !errors.As(err, &validation) {
		t.Fatalf("bad method: err = %v, want ValidationError", err)
	}

	stranger := createUser(t, s.DB, "freeloader", models.RoleClient)
	var perm *PermissionError
	if _, err := s.Payments.ProcessPayment(order.ID, stranger.ID, PaymentInput{
		Amount: order.Amount, Method: "alipay",
	}); !errors.As(err, &perm) {
		t.Fatalf("stranger pay: err = %v, want PermissionError", err)
	}
}

func TestPayRequiresCompletedOrder(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "payer6", models.RoleClient)
	order := createDirectOrder(t, s, client.ID, 30)

	var state *StateError
	if _, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount: order.Amount, Method: "alipay",
	}); !errors.As(err, &state) {
		t.Fatalf("pay pending: err = %v, want StateError", err)
	}
}

func TestPayTwice(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "payer7", models.RoleClient)
	order := payableOrder(t, s, client.ID, 30)

	if _, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount: order.Amount, Method: "alipay",
	}); err != nil {
		t.Fatalf("first pay: %v", err)
	}
	var state *StateError
	if _, err := s.Payments.ProcessPayment(order.ID, client.ID, PaymentInput{
		Amount: order.Amount, Method: "alipay",
	}); !errors.As(err, &state) {
		t.Fatalf("second pay: err = %v, want StateError", err)
	}
}

func TestPointsPaymentInfo(t *testing.T) {
	s := newTestServices(t)
	client := createUser(t, s.DB, "payer8", models.RoleClient)
	order := payableOrder(t, s, client.ID, 30) // amount 20.00, max 2000 points

	// Below the gate: unavailable with a reason.
	info, err := s.Payments.GetPointsPaymentInfo(order.ID, client.ID)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Available {
		t.Fatalf("points available without reputation")
	}
	if info.Reason == "" {
		t.Fatalf("no reason given")
	}

	seedReputation(t, s.DB, client.ID, 88)
	if err := s.Points.AddPoints(client.ID, 1200, models.PointsAdd, "seed", nil); err != nil {
		t.Fatalf("seed points: %v", err)
	}

	// Balance below the order maximum caps the deduction.
	info, err = s.Payments.GetPointsPaymentInfo(order.ID, client.ID)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !info.Available {
		t.Fatalf("points unavailable above the gate: %+v", info)
	}
	if info.MaxDeductPoints != 1200 {
		t.Fatalf("max deduct = %d, want 1200", info.MaxDeductPoints)
	}
	if !info.MaxDeductAmount.Equal(decimal.RequireFromString("12")) {
		t.Fatalf("max deduct amount = %s, want 12", info.MaxDeductAmount)
	}

	// Balance above the maximum: the order amount caps it.
	if err := s.Points.AddPoints(client.ID, 5000, models.PointsAdd, "more", nil); err != nil {
		t.Fatalf("seed points: %v", err)
	}
	info, _ = s.Payments.GetPointsPaymentInfo(order.ID, client.ID)
	if info.MaxDeductPoints != 2000 {
		t.Fatalf("max deduct = %d, want 2000", info.MaxDeductPoints)
	}

	stranger := createUser(t, s.DB, "snoop", models.RoleClient)
	var perm *PermissionError
	if _, err := s.Payments.GetPointsPaymentInfo(order.ID, stranger.ID); !errors.As(err, &perm) {
		t.Fatalf("stranger info: err = %v, want PermissionError", err)
	}
}
