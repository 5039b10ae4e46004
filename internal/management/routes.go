package management

import (
	"net/http"

	"github.com/MentorLoop/LMS-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// SetupRoutes mounts the catalog, assignment and performance endpoints.
// Everything here requires a live session; role gates narrow it further.
func (h *Handler) SetupRoutes(mw *middleware.Auth) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.TokenAuthentication)

	// Course catalog and mentor administration. Admin only.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/course", h.AddCourseHandler)
		r.Put("/course/{courseID}", h.UpdateCourseHandler)
		r.Delete("/course/{courseID}", h.DeleteCourseHandler)

		r.Post("/mentor", h.AddMentorHandler)
		r.Put("/course-mentor/{mentorID}", h.CourseToMentorHandler)
		r.Delete("/course-mentor/{mentorID}", h.DeleteCourseFromMentorHandler)
		r.Get("/course/{courseID}/mentors", h.MentorsForCourseHandler)

		r.Get("/new-students", h.NewStudentsHandler)
		r.Post("/student-course-mentor", h.AddStudentCourseMentorHandler)
		r.Put("/student-course-mentor/{studentID}", h.UpdateStudentCourseMentorHandler)
	})

	// Mentors and admins.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireMentorOrAdmin)
		r.Get("/mentor", h.MentorsHandler)
		r.Get("/mentor/{mentorID}", h.MentorDetailsHandler)
		r.Put("/performance/{studentID}/{weekNo}", h.UpdatePerformanceHandler)
		r.Post("/performance/upload", h.UploadScoresHandler)
	})

	// Visible to every role; handlers narrow the result set per role.
	r.Get("/course", h.AllCoursesHandler)
	r.Get("/student", h.StudentsHandler)
	r.Get("/student/{studentID}", h.StudentDetailsHandler)
	r.Get("/performance", h.PerformancesHandler)
	r.Get("/performance/{studentID}", h.PerformanceForStudentHandler)

	// Students maintaining their own profile.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStudent)
		r.Put("/student", h.StudentDetailsUpdateHandler)
		r.Post("/education", h.AddEducationHandler)
		r.Get("/education", h.EducationsHandler)
		r.Put("/education/{educationID}", h.UpdateEducationHandler)
	})

	return r
}
