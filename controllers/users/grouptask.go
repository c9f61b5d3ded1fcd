package users

import (
	"net/http"

	"github.com/CMoments/Online-life/middleware"
	"github.com/CMoments/Online-life/services"
	"github.com/CMoments/Online-life/utils"
)

type CreateGroupTaskRequest struct {
	Title            string `json:"title" validate:"required"`
	TaskType         string `json:"task_type" validate:"required"`
	Description      string `json:"description"`
	Location         string `json:"location" validate:"required"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

func CreateGroupTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req CreateGroupTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	group, err := svc().GroupTasks.Create(uid, services.CreateGroupTaskInput{
		Title:            req.Title,
		TaskType:         req.TaskType,
		Description:      req.Description,
		Location:         req.Location,
		EstimatedMinutes: req.EstimatedMinutes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Group task created", Data: group})
}

func JoinGroupTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	groupID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid group task id"})
		return
	}
	task, err := svc().GroupTasks.Join(groupID, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Joined group task", Data: task})
}

// LeaveTaskHandler removes the caller from one capacity-group task; the task
// reopens if it was full.
func LeaveTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}
	task, err := svc().GroupTasks.LeaveTask(taskID, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Left task", Data: task})
}

// LeaveGroupTaskHandler withdraws the caller from the whole campaign.
func LeaveGroupTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUserID(w, r)
	if !ok {
		return
	}
	groupID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid group task id"})
		return
	}
	if err := svc().GroupTasks.LeaveGroupTask(groupID, uid); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Left group task"})
}

func ListGroupTasksHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	page, perPage := pagination(r)
	groups, total, err := svc().GroupTasks.ListAvailable(r.URL.Query().Get("task_type"), page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"group_tasks": groups,
		"total":       total,
		"page":        page,
		"per_page":    perPage,
	}})
}

func GroupTaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	groupID, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid group task id"})
		return
	}
	view, err := svc().GroupTasks.Status(groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: view})
}
