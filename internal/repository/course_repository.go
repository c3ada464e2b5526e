package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rainbow59216/snatcher/internal/models"
)

// CourseRepository provides database access for the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns catalog entries matching the filter plus the total count.
func (r *CourseRepository) List(ctx context.Context, filter *models.CourseFilter) ([]models.Course, int, error) {
	conditions := []string{"year = $1", "term = $2"}
	args := []interface{}{filter.Year, filter.Term}

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Keyword != "" {
		args = append(args, "%"+filter.Keyword+"%")
		conditions = append(conditions, fmt.Sprintf("course_name ILIKE $%d", len(args)))
	}
	whereClause := strings.Join(conditions, " AND ")

	size, offset := clampPage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT id, category, course_id, course_name, course_no, grade, year, term
        FROM courses WHERE %s ORDER BY course_no ASC, course_name ASC LIMIT %d OFFSET %d`, whereClause, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM courses WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByName fetches a catalog entry by exact course name within a category.
func (r *CourseRepository) FindByName(ctx context.Context, category, courseName string) (*models.Course, error) {
	const query = `SELECT id, category, course_id, course_name, course_no, grade, year, term
        FROM courses WHERE category = $1 AND course_name = $2 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, category, courseName); err != nil {
		return nil, fmt.Errorf("find course by name: %w", err)
	}
	return &course, nil
}
