package model

// EnrollmentStatus is the lifecycle state of an enrollment row.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// GrantingStatuses are the enrollment states that open course material.
func GrantingStatuses() []string {
	return []string{string(EnrollmentActive), string(EnrollmentCompleted)}
}

// Enrollment links a student to a class batch.
type Enrollment struct {
	ID        int              `json:"id"`
	StudentID int              `json:"student_id"`
	ClassID   int              `json:"class_id"`
	Status    EnrollmentStatus `json:"status"`
}
