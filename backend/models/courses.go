package models

// Course is the course document served by GET /api/courses/{id}.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Progress    int       `json:"progress"`
	Sections    []Section `json:"sections"`
}

type Section struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

type Lesson struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content,omitempty"`
	Completed    bool   `json:"completed"`
	VideoURL     string `json:"video_url,omitempty"`
	SortOrder    *int   `json:"sort_order,omitempty"`
	RankRequired *int   `json:"rank_required,omitempty"`
}

// LessonContent is the lazily fetched lesson body.
type LessonContent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	VideoURL string `json:"video_url,omitempty"`
}

// CourseSummary is a catalog card.
type CourseSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Progress         int    `json:"progress"`
	TotalLessons     int    `json:"total_lessons"`
	CompletedLessons int    `json:"completed_lessons"`
	RankRequired     int    `json:"rank_required"`
	IsUnlocked       bool   `json:"is_unlocked"`
}

// Clone returns a deep copy, so snapshots never share section or lesson slices.
func (c Course) Clone() Course {
	out := c
	if c.Sections == nil {
		return out
	}
	out.Sections = make([]Section, len(c.Sections))
	for i, s := range c.Sections {
		out.Sections[i] = s
		if s.Lessons != nil {
			out.Sections[i].Lessons = make([]Lesson, len(s.Lessons))
			copy(out.Sections[i].Lessons, s.Lessons)
		}
	}
	return out
}
