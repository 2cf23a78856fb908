package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookstack/internal/catalog"
	"github.com/mrlokans/bookstack/internal/tasks"
)

// TasksController enqueues background imports and reports task status.
type TasksController struct {
	queue TaskQueue
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue) *TasksController {
	return &TasksController{queue: queue}
}

// EnqueueImport handles POST /api/imports
// The import runs on the task queue; the response carries the task id to
// poll at /api/tasks/:id.
func (tc *TasksController) EnqueueImport(c *gin.Context) {
	var in catalog.ImportInput
	if !bindJSON(c, &in) {
		return
	}

	in.ExternalID = strings.TrimSpace(in.ExternalID)
	if err := in.Validate(); err != nil {
		respondServiceError(c, err, "enqueue import")
		return
	}

	taskID, err := tc.queue.Enqueue(tasks.ImportBookTask{ExternalID: in.ExternalID})
	if err != nil {
		respondInternalError(c, err, "enqueue import")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"taskId": taskID,
		"queue":  tasks.QueueImportBook,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	statusStr := taskStatusToString(status)
	if status == backlite.TaskStatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{"id": taskID, "status": statusStr})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": statusStr,
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
