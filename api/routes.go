package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Register wires up all API routes on the provided Echo instance. Every route
// except the two Google sign-in entries requires a bearer session token.
func Register(e *echo.Echo, store Storage, sessions SessionService, identity IdentityProvider, clientURL string, logger *log.Logger) {
	e.GET("/auth/google", googleLogin(identity))
	e.GET("/auth/google/callback", googleCallback(store, sessions, identity, clientURL, logger))

	auth := e.Group("/auth", RequireSession(sessions))
	auth.GET("/profile", getProfile(store))
	auth.GET("/logout", logout(identity))

	boards := e.Group("/api/boards", RequireSession(sessions))
	boards.GET("/home", getHomeBoards(store))
	boards.GET("", getAllBoards(store))
	boards.POST("", createBoard(store))
	boards.GET("/:boardId", getOneBoard(store, logger))
	boards.PUT("/:boardId", editBoard(store))
	boards.POST("/:boardId/invite", inviteUser(store))

	tasks := boards.Group("/:boardId/tasks")
	tasks.GET("", getBoardTasks(store))
	tasks.POST("", createTask(store))
	tasks.GET("/:taskId", getOneTask(store))
	tasks.PUT("/:taskId", updateTask(store))
	tasks.DELETE("/:taskId", deleteTask(store))

	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}
