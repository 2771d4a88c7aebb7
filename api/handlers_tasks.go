package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kanban-api/domain"
)

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    domain.Category `json:"category"`
	AssignedTo  string          `json:"assignedTo"`
	Deadline    *time.Time      `json:"deadline"`
}

// createTask persists a new task on the board. Category is optional and
// defaults to Unassigned; the remaining fields are required.
func createTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		boardID, err := primitive.ObjectIDFromHex(c.Param("boardId"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
		}

		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		if req.Title == "" || req.Description == "" || req.AssignedTo == "" || req.Deadline == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
		}
		if req.Category == "" {
			req.Category = domain.CategoryUnassigned
		}
		if !req.Category.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid category"})
		}
		assignedTo, err := primitive.ObjectIDFromHex(req.AssignedTo)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
		}

		task := domain.Task{
			BoardID:     boardID,
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			AssignedTo:  assignedTo,
			Deadline:    *req.Deadline,
		}
		if err := store.CreateTask(ctx, &task); err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, taskErrorBody("Failed to create task", err))
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func getBoardTasks(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		boardID, err := primitive.ObjectIDFromHex(c.Param("boardId"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid board id"})
		}
		tasks, err := store.TasksByBoard(ctx, boardID)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, taskErrorBody("Failed to fetch tasks", err))
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func getOneTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		taskID, err := primitive.ObjectIDFromHex(c.Param("taskId"))
		if err != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
		}
		task, err := store.TaskByID(ctx, taskID)
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, taskErrorBody("Failed to fetch a task", err))
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		taskID, err := primitive.ObjectIDFromHex(c.Param("taskId"))
		if err != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
		}

		var upd domain.TaskUpdate
		if err := decodeBody(c, &upd); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		if upd.Category != nil && !upd.Category.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid category"})
		}

		task, err := store.UpdateTask(ctx, taskID, upd)
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, taskErrorBody("Failed to update task", err))
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		boardID, err := primitive.ObjectIDFromHex(c.Param("boardId"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid board id"})
		}
		taskID, err := primitive.ObjectIDFromHex(c.Param("taskId"))
		if err != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
		}
		if err := store.DeleteTask(ctx, taskID, boardID); err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, taskErrorBody("Failed to delete task", err))
		}
		return c.JSON(http.StatusOK, echo.Map{"taskId": taskID.Hex(), "message": "Task deleted successfully."})
	}
}
