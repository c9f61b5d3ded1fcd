package users

import (
	"net/http"
	"time"

	"github.com/CMoments/Online-life/middleware"
	"github.com/CMoments/Online-life/models"
	"github.com/CMoments/Online-life/services"
	"github.com/CMoments/Online-life/utils"
)

type CreateOrderRequest struct {
	OrderType        string `json:"order_type"`
	AssignmentMode   string `json:"assignment_mode"`
	TaskType         string `json:"task_type" validate:"required"`
	Description      string `json:"description"`
	Pickup           string `json:"pickup" validate:"required"`
	Dropoff          string `json:"dropoff" validate:"required"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	ScheduledAt      string `json:"scheduled_at,omitempty"` // RFC3339, scheduled orders only
}

func CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	in := services.CreateOrderInput{
		OrderType:        models.OrderType(req.OrderType),
		AssignmentMode:   models.AssignmentMode(req.AssignmentMode),
		TaskType:         req.TaskType,
		Description:      req.Description,
		Pickup:           req.Pickup,
		Dropoff:          req.Dropoff,
		EstimatedMinutes: req.EstimatedMinutes,
	}
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "scheduled_at must be RFC3339"})
			return
		}
		in.ScheduledAt = &t
	}

	order, err := svc().Orders.Create(uid, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Order created", Data: order})
}

func GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid order id"})
		return
	}
	order, err := svc().Orders.Get(orderID, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: order})
}

func ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	page, perPage := pagination(r)
	f := services.OrderFilter{
		Status:    models.OrderStatus(r.URL.Query().Get("status")),
		OrderType: models.OrderType(r.URL.Query().Get("order_type")),
		Page:      page,
		PerPage:   perPage,
	}
	if role, _ := utils.GetUserRole(r.Context()); role == string(models.RoleStaff) {
		f.StaffID = uid
	} else {
		f.ClientID = uid
	}
	orders, total, err := svc().Orders.List(f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"orders":   orders,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	}})
}

// AcceptOrderHandler lets a staff user take a pending direct order.
func AcceptOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid order id"})
		return
	}
	if err := svc().Orders.Assign(orderID, uid); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Order assigned"})
}

func StartOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid order id"})
		return
	}
	if err := svc().Orders.Start(orderID, uid); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Order started"})
}

func CompleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid order id"})
		return
	}
	if err := svc().Orders.Complete(orderID, uid); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Order completed"})
}

func CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid order id"})
		return
	}
	if err := svc().Orders.Cancel(orderID, uid); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Order cancelled"})
}

// AvailableOrdersHandler is the staff marketplace view of biddable orders.
func AvailableOrdersHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	page, perPage := pagination(r)
	orders, total, err := svc().Orders.ListAvailable(r.URL.Query().Get("task_type"), page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"orders":   orders,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	}})
}

func OrderStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	stats, err := svc().Orders.Statistics(uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: stats})
}
