package services

import (
	"fmt"
	"log"
	"time"

	"github.com/CMoments/Online-life/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settlement constants: the reputation gate for paying with points and the
// fixed exchange rate of 100 points per currency unit.
const (
	PointsGateScore     = 80.0
	PointsPerUnit       = 100
	RewardPointsPerUnit = 100
)

// PaymentService settles completed orders with cash, points, or a blend, and
// issues reward points for the cash portion.
type PaymentService struct {
	DB         *gorm.DB
	Points     *PointsService
	Reputation *ReputationService
}

// PointsPaymentInfo is the read-only projection of what a payer could do
// with points on an order. No mutation.
type PointsPaymentInfo struct {
	OrderID         uint            `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Available       bool            `json:"points_available"`
	Reason          string          `json:"reason,omitempty"`
	CurrentScore    float64         `json:"current_score"`
	RequiredScore   float64         `json:"required_score"`
	Balance         int64           `json:"points_balance"`
	MaxDeductPoints int64           `json:"max_deduct_points"`
	MaxDeductAmount decimal.Decimal `json:"max_deduct_amount"`
}

func (s *PaymentService) GetPointsPaymentInfo(orderID, payerID uint) (*PointsPaymentInfo, error) {
	var order models.Order
	if err := s.DB.First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, err
	}
	if order.ClientID != payerID {
		return nil, &PermissionError{Reason: "not your order"}
	}

	score, err := s.Reputation.AverageScore(payerID)
	if err != nil {
		return nil, err
	}
	balance, err := s.Points.GetBalance(payerID)
	if err != nil {
		return nil, err
	}

	info := PointsPaymentInfo{
		OrderID:       order.ID,
		Amount:        order.Amount,
		CurrentScore:  score,
		RequiredScore: PointsGateScore,
		Balance:       balance,
	}
	if score < PointsGateScore {
		info.Reason = fmt.Sprintf("reputation %.2f below required %.1f", score, PointsGateScore)
		return &info, nil
	}
	info.Available = true
	maxPoints := order.Amount.Mul(decimal.NewFromInt(PointsPerUnit)).IntPart()
	if balance < maxPoints {
		maxPoints = balance
	}
	info.MaxDeductPoints = maxPoints
	info.MaxDeductAmount = decimal.NewFromInt(maxPoints).Div(decimal.NewFromInt(PointsPerUnit))
	return &info, nil
}

type PaymentInput struct {
	Amount      decimal.Decimal
	PointsToUse int64
	Method      string // required when a cash portion remains
}

type PaymentResult struct {
	OrderID      uint            `json:"order_id"`
	OrderNo      string          `json:"order_no"`
	Amount       decimal.Decimal `json:"amount"`
	PointsUsed   int64           `json:"points_used"`
	CashPaid     decimal.Decimal `json:"cash_paid"`
	Method       string          `json:"method,omitempty"`
	RewardPoints int64           `json:"reward_points"`
	Warning      string          `json:"warning,omitempty"`
	PaidAt       time.Time       `json:"paid_at"`
}

var cashMethods = map[string]bool{
	"alipay":    true,
	"wechat":    true,
	"bank_card": true,
}

// ProcessPayment settles a completed order. Points cover amount at 100:1
// behind the reputation gate; any remaining cash is taken via the given
// method and earns floor(cash)*100 reward points. The reward credit is
// best-effort: its failure surfaces as a warning, never as a rollback of the
// payment itself.
func (s *PaymentService) ProcessPayment(orderID, payerID uint, in PaymentInput) (*PaymentResult, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if in.PointsToUse < 0 {
		return nil, &ValidationError{Field: "points", Reason: "cannot be negative"}
	}

	var result *PaymentResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.ClientID != payerID {
			return &PermissionError{Reason: "not your order"}
		}
		if order.Status != models.OrderCompleted {
			return &StateError{Entity: "order", State: string(order.Status), Op: "pay"}
		}
		if !in.Amount.Equal(order.Amount) {
			return &ValidationError{Field: "amount", Reason: "does not match the order amount"}
		}

		cashDue := in.Amount
		if in.PointsToUse > 0 {
			score, err := s.Reputation.AverageScore(payerID)
			if err != nil {
				return err
			}
			if score < PointsGateScore {
				return &PermissionError{
					Reason: fmt.Sprintf("points payment requires reputation %.1f, yours is %.2f", PointsGateScore, score),
				}
			}
			maxPoints := in.Amount.Mul(decimal.NewFromInt(PointsPerUnit)).IntPart()
			if in.PointsToUse > maxPoints {
				return &ValidationError{Field: "points", Reason: "exceeds the order amount"}
			}
			reason := fmt.Sprintf("payment for order %s", order.OrderNo)
			if err := debitPoints(tx, payerID, in.PointsToUse, models.PointsDeduct, reason, &order.ID); err != nil {
				return err
			}
			relief := decimal.NewFromInt(in.PointsToUse).Div(decimal.NewFromInt(PointsPerUnit))
			cashDue = cashDue.Sub(relief)
		}

		if cashDue.GreaterThan(decimal.Zero) && !cashMethods[in.Method] {
			return &ValidationError{Field: "payment_method", Reason: "unsupported payment method"}
		}

		updates := map[string]interface{}{
			"status":            models.OrderPaid,
			"assignment_status": models.AssignmentClosed,
		}
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return err
		}

		result = &PaymentResult{
			OrderID:    order.ID,
			OrderNo:    order.OrderNo,
			Amount:     order.Amount,
			PointsUsed: in.PointsToUse,
			CashPaid:   cashDue,
			Method:     in.Method,
			PaidAt:     time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reward points for the cash portion, outside the payment transaction.
	if result.CashPaid.GreaterThan(decimal.Zero) {
		reward := result.CashPaid.Floor().IntPart() * RewardPointsPerUnit
		if reward > 0 {
			reason := fmt.Sprintf("cash payment reward for order %s", result.OrderNo)
			if err := s.Points.AddPoints(payerID, reward, models.PointsAdd, reason, &result.OrderID); err != nil {
				log.Printf("[payment] reward credit failed for order %s: %v", result.OrderNo, err)
				result.Warning = "payment succeeded but reward points could not be credited"
			} else {
				result.RewardPoints = reward
			}
		}
	}
	return result, nil
}
