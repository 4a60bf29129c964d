package controllers

import (
	"miniapp/backend/middleware"
	"miniapp/backend/ranks"
	"miniapp/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	API CourseAPI
}

func NewUserController(api CourseAPI) *UserController {
	return &UserController{API: api}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns points and rank of the Mini-App user
// @Tags users
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} utils.ErrorResponse
// @Router /me [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	profile, err := uc.API.GetMe(c.UserContext(), middleware.InitData(c))
	if err != nil {
		return utils.Upstream(c, err)
	}

	profile.RankLevel = ranks.Level(profile.Points)
	return c.JSON(profile)
}

// GetRanks godoc
// @Summary List ranks
// @Tags users
// @Produce json
// @Success 200 {array} models.RankInfo
// @Router /ranks [get]
func (uc *UserController) GetRanks(c *fiber.Ctx) error {
	list, err := uc.API.GetRanks(c.UserContext(), middleware.InitData(c))
	if err != nil {
		return utils.Upstream(c, err)
	}
	return c.JSON(list)
}
