package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow59216/snatcher/internal/models"
)

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "category", "course_id", "course_name", "course_no", "grade", "year", "term"}).
		AddRow("c1", "GeneralElective", "A000001", "Film Appreciation", "001", 2019, 2024, 1)
}

func TestListCoursesByCategoryAndKeyword(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM courses WHERE year = \\$1 AND term = \\$2 AND category = \\$3 AND course_name ILIKE \\$4").
		WithArgs(2024, 1, "GeneralElective", "%Film%").
		WillReturnRows(courseRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM courses").
		WithArgs(2024, 1, "GeneralElective", "%Film%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), &models.CourseFilter{
		Category: "GeneralElective",
		Keyword:  "Film",
		Year:     2024,
		Term:     1,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, courses, 1)
	assert.Equal(t, "Film Appreciation", courses[0].CourseName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCoursesWithoutOptionalFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM courses WHERE year = \\$1 AND term = \\$2 ORDER BY").
		WithArgs(2024, 1).
		WillReturnRows(courseRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM courses").
		WithArgs(2024, 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, total, err := repo.List(context.Background(), &models.CourseFilter{Year: 2024, Term: 1, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCourseByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM courses WHERE category = \\$1 AND course_name = \\$2").
		WithArgs("GeneralElective", "Film Appreciation").
		WillReturnRows(courseRows())

	course, err := repo.FindByName(context.Background(), "GeneralElective", "Film Appreciation")
	require.NoError(t, err)
	assert.Equal(t, "A000001", course.CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
