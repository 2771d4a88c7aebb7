package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kanban-api/domain"
)

const requestBodyMaxSize = 1 << 20

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	return sonic.ConfigStd.NewDecoder(lr).Decode(v)
}

type createBoardRequest struct {
	BoardName string `json:"boardName"`
}

type editBoardRequest struct {
	Name string `json:"name"`
}

type inviteRequest struct {
	InvitedUserID string `json:"invitedUserId"`
}

// getHomeBoards serves the user's last visited boards. The payload is small
// and volatile, so it is served straight from the store.
func getHomeBoards(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := primitive.ObjectIDFromHex(identityFrom(c).UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to get home boards."))
		}
		boards, err := store.HomeBoards(ctx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to get home boards."))
		}
		if len(boards) == 0 {
			return c.JSON(http.StatusOK, messageBody("No boards found, please create or join one."))
		}
		return c.JSON(http.StatusOK, echo.Map{"boards": boards})
	}
}

func getAllBoards(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := primitive.ObjectIDFromHex(identityFrom(c).UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to get all boards."))
		}
		boards, err := store.BoardsByMember(ctx, userID)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to get all boards."))
		}
		return c.JSON(http.StatusOK, echo.Map{"boards": boards})
	}
}

func createBoard(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := primitive.ObjectIDFromHex(identityFrom(c).UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to create board."))
		}

		var req createBoardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, messageBody("invalid body"))
		}
		if req.BoardName == "" {
			return c.JSON(http.StatusNotFound, messageBody("boardName is missing."))
		}

		board := domain.NewBoard(req.BoardName, userID)
		err = store.CreateBoard(ctx, &board)
		if errors.Is(err, domain.ErrBoardExists) {
			return c.JSON(http.StatusBadRequest, messageBody("You can create only one board."))
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to create board."))
		}
		return c.JSON(http.StatusCreated, echo.Map{"board": board})
	}
}

// getOneBoard serves a single board through the cache. Only a cache miss
// records the visit in the user's recently-visited list; a hit returns the
// snapshot verbatim and skips the side effect.
func getOneBoard(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics := newBoardRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		userID, idErr := primitive.ObjectIDFromHex(identityFrom(c).UserID)
		if idErr != nil {
			metrics.SetErrorStage("identity")
			err = c.JSON(http.StatusInternalServerError, messageBody("Failed to get board."))
			return err
		}
		boardID, idErr := primitive.ObjectIDFromHex(c.Param("boardId"))
		if idErr != nil {
			metrics.SetErrorStage("board_id")
			err = c.JSON(http.StatusNotFound, messageBody("Board not found."))
			return err
		}

		fetchStart := time.Now()
		board, cached, fetchErr := store.BoardByID(ctx, boardID)
		metrics.ObserveFetch(time.Since(fetchStart))
		metrics.SetCacheHit(cached)
		if errors.Is(fetchErr, domain.ErrNotFound) {
			metrics.SetErrorStage("not_found")
			err = c.JSON(http.StatusNotFound, messageBody("Board not found."))
			return err
		}
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, messageBody("Failed to get board."))
			return err
		}

		if !cached {
			if visitErr := store.RecordBoardVisit(ctx, userID, boardID); visitErr != nil {
				// The visit list is best-effort; the board fetch still succeeds.
				logger.WithError(visitErr).WithField("board", boardID.Hex()).Warn("record board visit")
			}
		}

		err = c.JSON(http.StatusOK, echo.Map{"board": board})
		return err
	}
}

func editBoard(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		boardID, err := primitive.ObjectIDFromHex(c.Param("boardId"))
		if err != nil {
			return c.JSON(http.StatusNotFound, messageBody("Board not found."))
		}

		var req editBoardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, messageBody("invalid body"))
		}

		board, err := store.RenameBoard(ctx, boardID, req.Name)
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, messageBody("Board not found."))
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to edit board."))
		}
		return c.JSON(http.StatusOK, echo.Map{"board": board})
	}
}

// inviteUser grows a board's member set. Only the creator may invite, and
// inviting an existing member is a no-op.
func inviteUser(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		requesterID, err := primitive.ObjectIDFromHex(identityFrom(c).UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to invite user to board."))
		}
		boardID, err := primitive.ObjectIDFromHex(c.Param("boardId"))
		if err != nil {
			return c.JSON(http.StatusNotFound, messageBody("Board not found or you are not the creator."))
		}

		var req inviteRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, messageBody("invalid body"))
		}
		if req.InvitedUserID == "" {
			return c.JSON(http.StatusBadRequest, messageBody("invitedUserId is required."))
		}
		invitedID, err := primitive.ObjectIDFromHex(req.InvitedUserID)
		if err != nil {
			return c.JSON(http.StatusNotFound, messageBody("Invited user not found."))
		}

		board, _, err := store.BoardByID(ctx, boardID)
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, messageBody("Board not found or you are not the creator."))
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to invite user to board."))
		}
		if board.CreatedBy != requesterID {
			return c.JSON(http.StatusNotFound, messageBody("Board not found or you are not the creator."))
		}

		if _, err := store.UserByID(ctx, invitedID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return c.JSON(http.StatusNotFound, messageBody("Invited user not found."))
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to invite user to board."))
		}

		if err := store.AddBoardMember(ctx, boardID, requesterID, invitedID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return c.JSON(http.StatusNotFound, messageBody("Board not found or you are not the creator."))
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageBody("Failed to invite user to board."))
		}
		return c.JSON(http.StatusOK, messageBody("User invited successfully."))
	}
}
