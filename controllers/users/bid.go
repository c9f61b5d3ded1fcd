package users

import (
	"net/http"

	"github.com/CMoments/Online-life/models"
	"github.com/CMoments/Online-life/utils"
)

// PlaceBidHandler records a bid on a full task. The fifth pending bid
// triggers reputation-ranked assignment inside the same transaction.
func PlaceBidHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	bid, err := svc().Bids.Bid(taskID, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Bid placed", Data: bid})
}

// AcceptBidHandler lets the order owner or campaign creator accept a pending
// bid before the quorum resolves on its own.
func AcceptBidHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	bidID, err := pathID(r, "bid_id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid bid id"})
		return
	}
	if err := svc().Bids.AcceptBid(taskID, bidID, uid); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Bid accepted"})
}

func BiddableTasksHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	page, perPage := pagination(r)
	tasks, total, err := svc().Bids.ListBiddable(r.URL.Query().Get("task_type"), page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"tasks":    tasks,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	}})
}

func MyBidsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	page, perPage := pagination(r)
	bids, total, err := svc().Bids.UserBids(uid, models.BidStatus(r.URL.Query().Get("status")), page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"bids":     bids,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	}})
}
