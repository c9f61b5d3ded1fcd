package users

import (
	"net/http"

	"github.com/CMoments/Online-life/middleware"
	"github.com/CMoments/Online-life/services"
	"github.com/CMoments/Online-life/utils"

	"github.com/shopspring/decimal"
)

// PointsPaymentInfoHandler shows what points could cover on an order without
// mutating anything.
func PointsPaymentInfoHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid order id"})
		return
	}
	info, err := svc().Payments.GetPointsPaymentInfo(orderID, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: info})
}

type PayOrderRequest struct {
	Amount      string `json:"amount" validate:"required"`
	PointsToUse int64  `json:"points_to_use"`
	Method      string `json:"method"`
}

func PayOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid order id"})
		return
	}
	var req PayOrderRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "amount must be a decimal string"})
		return
	}

	result, err := svc().Payments.ProcessPayment(orderID, uid, services.PaymentInput{
		Amount:      amount,
		PointsToUse: req.PointsToUse,
		Method:      req.Method,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Payment settled", Data: result})
}
