package users

import (
	"errors"
	"net/http"

	"github.com/CMoments/Online-life/database"
	"github.com/CMoments/Online-life/models"
	"github.com/CMoments/Online-life/utils"

	"gorm.io/gorm"
)

func InfoHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}

	db := database.DB
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "User not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Database error"})
		return
	}

	balance, err := svc().Points.GetBalance(uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	summary, err := svc().Reputation.GetSummary(uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"user": map[string]interface{}{
				"id":      user.ID,
				"name":    user.Name,
				"email":   user.Email,
				"phone":   user.Phone,
				"address": user.Address,
				"role":    user.Role,
			},
			"points_balance": balance,
			"reputation":     summary,
		},
	})
}
