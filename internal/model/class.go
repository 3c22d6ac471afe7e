package model

import "time"

// Course is a catalog course; its title carries the certification name.
type Course struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// ClassBatch is a scheduled offering of a course with one assigned instructor.
type ClassBatch struct {
	ID           int       `json:"id"`
	CourseID     int       `json:"course_id"`
	InstructorID int       `json:"instructor_id"`
	BatchName    string    `json:"batch_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClassContext is the optional class a handout is opened under.
// The zero value means no class was given.
type ClassContext struct {
	ID int
}

// Present reports whether a usable class ID was supplied.
func (c ClassContext) Present() bool { return c.ID > 0 }

// InstructorSource records where InstructorInfo came from.
type InstructorSource string

const (
	InstructorFromClass   InstructorSource = "class"
	InstructorFromSession InstructorSource = "session"
	InstructorFromDefault InstructorSource = "default"
)

// InstructorInfo is the instructor printed on a handout.
type InstructorInfo struct {
	Name   string
	Email  string
	Source InstructorSource
}
