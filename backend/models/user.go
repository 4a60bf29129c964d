package models

// Profile is returned by GET /api/me.
type Profile struct {
	ID                 int64   `json:"id"`
	FirstName          *string `json:"first_name"`
	Username           *string `json:"username"`
	Points             int     `json:"points"`
	Rank               string  `json:"rank"`
	RankLevel          int     `json:"rank_level,omitempty"`
	NextRankName       *string `json:"next_rank_name"`
	PointsToNextRank   *int    `json:"points_to_next_rank"`
	ProgressPercentage int     `json:"progress_percentage"`
}

type RankInfo struct {
	Level      int    `json:"level"`
	Name       string `json:"name"`
	MinPoints  int    `json:"min_points"`
	IsUnlocked bool   `json:"is_unlocked"`
}

type LeaderboardRow struct {
	Rank      int     `json:"rank"`
	UserID    int64   `json:"user_id"`
	FirstName *string `json:"first_name"`
	Username  *string `json:"username"`
	Score     int     `json:"score"`
}

type CurrentUserRank struct {
	Rank  int `json:"rank"`
	Score int `json:"score"`
}

type Leaderboard struct {
	TopUsers    []LeaderboardRow `json:"top_users"`
	CurrentUser *CurrentUserRank `json:"current_user"`
}
