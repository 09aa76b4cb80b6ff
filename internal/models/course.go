package models

import "time"

// Course is the academic course a student group studies.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentGroup is a cohort of students taking one course together.
type StudentGroup struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	Name      string               `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CourseID  uint                 `gorm:"index;not null" json:"course_id"`
	Disabled  bool                 `gorm:"not null;default:false" json:"disabled"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	Members   []StudentGroupMember `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members,omitempty"`
}

// StudentGroupMember links a student to a group.
type StudentGroupMember struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentGroupID uint      `gorm:"not null;uniqueIndex:idx_group_member" json:"student_group_id"`
	StudentID      uint      `gorm:"not null;uniqueIndex:idx_group_member" json:"student_id"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	// CourseScheduleStatusScheduled marks an active timetable entry.
	CourseScheduleStatusScheduled = "scheduled"
	// CourseScheduleStatusCancelled marks an entry that no longer occupies its slot.
	CourseScheduleStatusCancelled = "cancelled"
)

// CourseSchedule is a timetable entry occupying a window for a group on a date.
type CourseSchedule struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentGroupID uint      `gorm:"not null;index:idx_schedule_group_date" json:"student_group_id"`
	CourseID       uint      `gorm:"not null" json:"course_id"`
	ScheduleDate   string    `gorm:"size:10;not null;index:idx_schedule_group_date" json:"schedule_date"`
	FromTime       string    `gorm:"size:16;not null" json:"from_time"`
	ToTime         string    `gorm:"size:16;not null" json:"to_time"`
	Status         string    `gorm:"size:32;not null;default:scheduled" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Window parses the stored clock values into a comparable window.
func (s CourseSchedule) Window() (Window, error) {
	return ParseWindow(s.FromTime, s.ToTime)
}
