package controllers

import (
	"miniapp/backend/middleware"
	"miniapp/backend/models"
	"miniapp/backend/utils"

	"github.com/gofiber/fiber/v2"
)

var leaderboardPeriods = map[string]bool{"7d": true, "30d": true, "all": true}

type LeaderboardController struct {
	API CourseAPI
}

func NewLeaderboardController(api CourseAPI) *LeaderboardController {
	return &LeaderboardController{API: api}
}

// GetLeaderboard godoc
// @Summary Leaderboard for a period
// @Tags leaderboard
// @Produce json
// @Param period query string false "7d, 30d or all" default(7d)
// @Success 200 {object} models.Leaderboard
// @Failure 400 {object} utils.ErrorResponse
// @Router /leaderboard [get]
func (lc *LeaderboardController) GetLeaderboard(c *fiber.Ctx) error {
	period := c.Query("period", "7d")
	if !leaderboardPeriods[period] {
		return utils.BadRequest(c, "period must be one of 7d, 30d, all")
	}

	board, err := lc.API.GetLeaderboard(c.UserContext(), middleware.InitData(c), period)
	if err != nil {
		return utils.Upstream(c, err)
	}
	if board.TopUsers == nil {
		board.TopUsers = []models.LeaderboardRow{}
	}
	return c.JSON(board)
}
