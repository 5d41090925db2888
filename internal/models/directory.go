package models

import "time"

// Course and Topic are owned by the resource service; this service only reads them.
type Course struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"not null;size:255;index"`
	Code           string    `json:"code" gorm:"size:50"`
	Title          string    `json:"title" gorm:"not null;size:255"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

// Label is the human-readable course name used in prompts.
func (c *Course) Label() string {
	if c.Code != "" {
		return c.Code + " " + c.Title
	}
	return c.Title
}

type Topic struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CourseID  uint      `json:"course_id" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Topic) TableName() string {
	return "topics"
}
