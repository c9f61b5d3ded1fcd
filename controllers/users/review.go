package users

import (
	"net/http"

	"github.com/CMoments/Online-life/middleware"
	"github.com/CMoments/Online-life/utils"
)

type SubmitReviewRequest struct {
	SubjectID uint    `json:"subject_id"`
	OrderID   *uint   `json:"order_id,omitempty"`
	Score     float64 `json:"score"`
	Comment   string  `json:"comment"`
}

func SubmitReviewHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	review, err := svc().Reputation.SubmitReview(uid, req.SubjectID, req.OrderID, req.Score, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Review submitted", Data: review})
}

// ReputationHandler exposes a user's reputation summary.
func ReputationHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	subjectID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid user id"})
		return
	}
	summary, err := svc().Reputation.GetSummary(subjectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: summary})
}
