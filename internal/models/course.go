package models

// Course is one catalog entry users pick goals from. Grade is only meaningful
// for physical-education sections; CourseNo only for general electives.
type Course struct {
	ID         string `db:"id" json:"id"`
	Category   string `db:"category" json:"category"`
	CourseID   string `db:"course_id" json:"course_id"`
	CourseName string `db:"course_name" json:"course_name"`
	CourseNo   string `db:"course_no" json:"course_no,omitempty"`
	Grade      int    `db:"grade" json:"grade,omitempty"`
	Year       int    `db:"year" json:"year"`
	Term       int    `db:"term" json:"term"`
}

// CourseFilter narrows catalog listings.
type CourseFilter struct {
	Category string
	Keyword  string
	Year     int
	Term     int
	Page     int
	PageSize int
}
