// Package ranks maps activity points onto the community rank ladder.
package ranks

import "miniapp/backend/models"

type Rank struct {
	Name      string
	MinPoints int
}

// Ladder is ordered by MinPoints; level N is Ladder[N-1].
var Ladder = []Rank{
	{Name: "Новичок", MinPoints: 0},
	{Name: "Активный участник", MinPoints: 51},
	{Name: "Ветеран", MinPoints: 201},
	{Name: "Легенда", MinPoints: 501},
}

// Level returns the 1-based rank level for points.
func Level(points int) int {
	level := 1
	for i, r := range Ladder {
		if points >= r.MinPoints {
			level = i + 1
		}
	}
	return level
}

func ForPoints(points int) Rank {
	return Ladder[Level(points)-1]
}

// Next returns the rank after the one held at points, if any.
func Next(points int) (Rank, bool) {
	level := Level(points)
	if level >= len(Ladder) {
		return Rank{}, false
	}
	return Ladder[level], true
}

// Progress is the percentage of the way from the current rank to the next.
// It is 100 at the top rank.
func Progress(points int) int {
	current := ForPoints(points)
	next, ok := Next(points)
	if !ok {
		return 100
	}
	span := next.MinPoints - current.MinPoints
	if span <= 0 {
		return 100
	}
	return (points - current.MinPoints) * 100 / span
}

// Profile fills the rank fields of a profile from its points.
func Profile(p *models.Profile) {
	current := ForPoints(p.Points)
	p.Rank = current.Name
	p.RankLevel = Level(p.Points)
	p.ProgressPercentage = Progress(p.Points)
	p.NextRankName = nil
	p.PointsToNextRank = nil
	if next, ok := Next(p.Points); ok {
		name := next.Name
		left := next.MinPoints - p.Points
		p.NextRankName = &name
		p.PointsToNextRank = &left
	} else {
		top := "Max"
		p.NextRankName = &top
	}
}

// List describes the whole ladder for a user with the given points.
func List(points int) []models.RankInfo {
	out := make([]models.RankInfo, len(Ladder))
	for i, r := range Ladder {
		out[i] = models.RankInfo{
			Level:      i + 1,
			Name:       r.Name,
			MinPoints:  r.MinPoints,
			IsUnlocked: points >= r.MinPoints,
		}
	}
	return out
}
