package users

import (
	"net/http"
	"strconv"

	"github.com/CMoments/Online-life/middleware"
	"github.com/CMoments/Online-life/utils"
)

func PointsBalanceHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	balance, err := svc().Points.GetBalance(uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"balance": balance,
	}})
}

type TransferPointsRequest struct {
	ToUserID uint   `json:"to_user_id"`
	Amount   int64  `json:"amount"`
	Message  string `json:"message"`
}

func TransferPointsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req TransferPointsRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if err := svc().Points.TransferPoints(uid, req.ToUserID, req.Amount, req.Message); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Points transferred"})
}

func PointsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	page, perPage := pagination(r)
	entries, total, err := svc().Points.GetHistory(uid, page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"entries":  entries,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	}})
}

func PointsRankingHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ranking, err := svc().Points.GetRanking(limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: ranking})
}
