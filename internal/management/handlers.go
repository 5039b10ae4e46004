package management

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MentorLoop/LMS-Backend/internal/auth"
	"github.com/MentorLoop/LMS-Backend/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	gitLinkPattern   = regexp.MustCompile(`^(https://github\.com/)[a-zA-Z0-9]+/?$`)
	altMobilePattern = regexp.MustCompile(`^(\+91|91|0)?[6-9][0-9]{9}$`)
)

// Handler serves the catalog, assignment and performance endpoints. Auth is
// the user-management handler; mentor onboarding goes through its codec and
// mailer so mentors get the same first-login mail as everyone else.
type Handler struct {
	DB   *gorm.DB
	Log  *logrus.Logger
	Auth *auth.Handler
}

// ---- courses ----

func (h *Handler) AddCourseHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"course_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		utils.Respond(w, http.StatusBadRequest, "course_name is required")
		return
	}

	course := Course{Name: input.Name}
	if err := h.DB.Create(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Respond(w, http.StatusBadRequest, fmt.Sprintf("%s is already present", course.Name))
			return
		}
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to add course")
		return
	}

	h.Log.Infof("course %s added", course.CID)
	utils.Respond(w, http.StatusCreated, fmt.Sprintf("%s is added in course", course.Name))
}

func (h *Handler) AllCoursesHandler(w http.ResponseWriter, r *http.Request) {
	var courses []Course
	if err := h.DB.Order("id").Find(&courses).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to fetch courses")
		return
	}
	utils.RespondData(w, http.StatusOK, courses)
}

func (h *Handler) UpdateCourseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(pathParam(r, "courseID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid course id")
		return
	}
	var input struct {
		Name string `json:"course_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		utils.Respond(w, http.StatusBadRequest, "course_name is required")
		return
	}

	var course Course
	if err := h.DB.First(&course, id).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Course with given id does not exist")
		return
	}

	course.Name = input.Name
	if err := h.DB.Save(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Respond(w, http.StatusBadRequest, fmt.Sprintf("%s is already present", strings.ToUpper(strings.TrimSpace(input.Name))))
			return
		}
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to update course")
		return
	}

	utils.Respond(w, http.StatusOK, fmt.Sprintf("Course name is updated to %s", course.Name))
}

func (h *Handler) DeleteCourseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(pathParam(r, "courseID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid course id")
		return
	}

	var course Course
	if err := h.DB.First(&course, id).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Course not found with this id")
		return
	}
	if err := h.DB.Delete(&course).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to delete course")
		return
	}

	h.Log.Infof("course %s deleted", course.CID)
	utils.Respond(w, http.StatusOK, fmt.Sprintf("%s is deleted", course.Name))
}

// ---- mentor course bucket ----

func (h *Handler) CourseToMentorHandler(w http.ResponseWriter, r *http.Request) {
	mentorID, err := strconv.Atoi(pathParam(r, "mentorID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid mentor id")
		return
	}
	var input struct {
		CourseID uint `json:"course_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.CourseID == 0 {
		utils.Respond(w, http.StatusBadRequest, "course_id is required")
		return
	}

	var mentor Mentor
	if err := h.DB.Preload("User").Preload("Courses").First(&mentor, mentorID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Mentor id does not exist")
		return
	}
	var course Course
	if err := h.DB.First(&course, input.CourseID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Course with given id does not exist")
		return
	}

	for _, c := range mentor.Courses {
		if c.ID == course.ID {
			utils.Respond(w, http.StatusBadRequest, "This course is already added")
			return
		}
	}
	if err := h.DB.Model(&mentor).Association("Courses").Append(&course); err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to add course to mentor")
		return
	}

	utils.Respond(w, http.StatusOK, fmt.Sprintf("New course added to %s's course list", mentor.User.FullName()))
}

func (h *Handler) DeleteCourseFromMentorHandler(w http.ResponseWriter, r *http.Request) {
	mentorID, err := strconv.Atoi(pathParam(r, "mentorID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid mentor id")
		return
	}
	var input struct {
		CourseID uint `json:"course_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.CourseID == 0 {
		utils.Respond(w, http.StatusBadRequest, "course_id is required")
		return
	}

	var mentor Mentor
	if err := h.DB.Preload("User").Preload("Courses").First(&mentor, mentorID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Mentor id does not exist")
		return
	}
	var course Course
	if err := h.DB.First(&course, input.CourseID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Course with given id does not exist")
		return
	}

	assigned := false
	for _, c := range mentor.Courses {
		if c.ID == course.ID {
			assigned = true
			break
		}
	}
	if !assigned {
		utils.Respond(w, http.StatusNotFound,
			fmt.Sprintf("%s is not in %s's course list", course.Name, mentor.User.FullName()))
		return
	}
	if err := h.DB.Model(&mentor).Association("Courses").Delete(&course); err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to remove course from mentor")
		return
	}

	utils.Respond(w, http.StatusOK, fmt.Sprintf("%s is removed", course.Name))
}

func (h *Handler) MentorsForCourseHandler(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.Atoi(pathParam(r, "courseID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid course id")
		return
	}
	var course Course
	if err := h.DB.First(&course, courseID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Course with given id does not exist")
		return
	}

	var mentors []Mentor
	if err := h.DB.Preload("User").
		Joins("JOIN mentor_courses mc ON mc.mentor_id = mentors.id").
		Where("mc.course_id = ?", course.ID).
		Find(&mentors).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to fetch mentors")
		return
	}

	out := make([]map[string]any, 0, len(mentors))
	for _, m := range mentors {
		out = append(out, map[string]any{
			"id":     m.ID,
			"mid":    m.MID,
			"name":   m.User.FullName(),
			"email":  m.User.Email,
			"mobile": m.User.Mobile,
		})
	}
	utils.RespondData(w, http.StatusOK, out)
}

// ---- mentors ----

// AddMentorHandler registers a mentor account in one shot: user row with the
// email doubling as username, mentor profile, initial course bucket, and the
// registration mail with the one-time login link.
func (h *Handler) AddMentorHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Mobile    string `json:"mobile"`
		CourseIDs []uint `json:"course_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if input.FirstName == "" || input.LastName == "" || input.Email == "" {
		utils.Respond(w, http.StatusBadRequest, "first_name, last_name and email are required")
		return
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if !altMobilePattern.MatchString(input.Mobile) {
		utils.Respond(w, http.StatusBadRequest, "Invalid mobile number")
		return
	}

	var courses []Course
	if len(input.CourseIDs) > 0 {
		if err := h.DB.Find(&courses, input.CourseIDs).Error; err != nil || len(courses) != len(input.CourseIDs) {
			utils.Respond(w, http.StatusNotFound, "Course with given id does not exist")
			return
		}
	}

	password, err := auth.GeneratePassword()
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	user := auth.User{
		UserID:         uuid.New().String(),
		Username:       input.Email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		Mobile:         input.Mobile,
		HashedPassword: hashed,
		Role:           utils.RoleMentor,
	}
	mentor := Mentor{UserID: user.UserID, Courses: courses}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&mentor).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Respond(w, http.StatusBadRequest, "A user with this username, email or mobile is already present")
			return
		}
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to register mentor")
		return
	}

	firstLoginToken, err := h.Auth.Codec.Issue(user.Username, user.HashedPassword)
	if err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := h.Auth.Mailer.SendRegistration(auth.RegistrationMail{
		Name:     user.FullName(),
		Username: user.Username,
		Password: password,
		Email:    user.Email,
		Site:     h.Auth.Site,
		Token:    firstLoginToken,
	}); err != nil {
		h.Log.Error(err)
	}

	h.Log.Infof("mentor %s registered", mentor.MID)
	utils.Respond(w, http.StatusCreated, "A new Mentor is registered successfully")
}

func (h *Handler) MentorsHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}

	query := h.DB.Preload("User").Preload("Courses")
	if authUser.Role == utils.RoleMentor && !authUser.IsSuperuser {
		query = query.Where("user_id = ?", authUser.UserID)
	}

	var mentors []Mentor
	if err := query.Find(&mentors).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to fetch mentors")
		return
	}
	if len(mentors) == 0 {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}

	utils.RespondData(w, http.StatusOK, h.mentorViews(mentors))
}

func (h *Handler) MentorDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(pathParam(r, "mentorID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid mentor id")
		return
	}
	var mentor Mentor
	if err := h.DB.Preload("User").Preload("Courses").First(&mentor, id).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Mentor id does not exist")
		return
	}
	utils.RespondData(w, http.StatusOK, h.mentorViews([]Mentor{mentor})[0])
}

// mentorViews shapes mentor rows for the API, counting assigned students per
// course along the way.
func (h *Handler) mentorViews(mentors []Mentor) []map[string]any {
	out := make([]map[string]any, 0, len(mentors))
	for _, m := range mentors {
		courses := make([]map[string]any, 0, len(m.Courses))
		for _, c := range m.Courses {
			var count int64
			h.DB.Model(&StudentCourseMentor{}).
				Where("mentor_id = ? AND course_id = ?", m.ID, c.ID).
				Count(&count)
			courses = append(courses, map[string]any{
				"id":            c.ID,
				"cid":           c.CID,
				"course_name":   c.Name,
				"student_count": count,
			})
		}
		out = append(out, map[string]any{
			"id":     m.ID,
			"mid":    m.MID,
			"name":   m.User.FullName(),
			"email":  m.User.Email,
			"mobile": m.User.Mobile,
			"course": courses,
		})
	}
	return out
}

// ---- students ----

// mentorForUser resolves the mentor profile behind an authenticated user.
func (h *Handler) mentorForUser(userID string) (*Mentor, error) {
	var mentor Mentor
	if err := h.DB.Preload("User").First(&mentor, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &mentor, nil
}

func (h *Handler) studentForUser(userID string) (*Student, error) {
	var student Student
	if err := h.DB.Preload("User").First(&student, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (h *Handler) StudentsHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}

	query := h.DB.Preload("User")
	switch {
	case authUser.Role == utils.RoleStudent:
		query = query.Where("user_id = ?", authUser.UserID)
	case authUser.Role == utils.RoleMentor && !authUser.IsSuperuser:
		mentor, err := h.mentorForUser(authUser.UserID)
		if err != nil {
			utils.Respond(w, http.StatusNotFound, "Records not found")
			return
		}
		query = query.
			Joins("JOIN student_course_mentors scm ON scm.student_id = students.id").
			Where("scm.mentor_id = ?", mentor.ID)
	}

	var students []Student
	if err := query.Find(&students).Error; err != nil || len(students) == 0 {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}

	utils.RespondData(w, http.StatusOK, h.studentViews(students))
}

func (h *Handler) StudentDetailsHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	id, err := strconv.Atoi(pathParam(r, "studentID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid student id")
		return
	}

	var student Student
	if err := h.DB.Preload("User").First(&student, id).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}

	// Students see only themselves; mentors only students mapped to them.
	switch {
	case authUser.Role == utils.RoleStudent && student.UserID != authUser.UserID:
		utils.Respond(w, http.StatusForbidden, "You are not allowed to access this resource")
		return
	case authUser.Role == utils.RoleMentor && !authUser.IsSuperuser:
		mentor, err := h.mentorForUser(authUser.UserID)
		if err != nil {
			utils.Respond(w, http.StatusNotFound, "Records not found")
			return
		}
		var count int64
		h.DB.Model(&StudentCourseMentor{}).
			Where("student_id = ? AND mentor_id = ?", student.ID, mentor.ID).
			Count(&count)
		if count == 0 {
			utils.Respond(w, http.StatusForbidden, "You are not allowed to access this resource")
			return
		}
	}

	utils.RespondData(w, http.StatusOK, h.studentViews([]Student{student})[0])
}

// StudentDetailsUpdateHandler lets a student fill in their own profile.
func (h *Handler) StudentDetailsUpdateHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	student, err := h.studentForUser(authUser.UserID)
	if err != nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}

	var input struct {
		AltMobile         string   `json:"alt_number"`
		AltRelation       string   `json:"relation_with_alt_number_holder"`
		CurrentLocation   string   `json:"current_location"`
		CurrentAddress    string   `json:"current_address"`
		GitLink           string   `json:"git_link"`
		YearsOfExperience int      `json:"year_of_experience"`
		Skills            []string `json:"skills"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if input.GitLink != "" && !gitLinkPattern.MatchString(input.GitLink) {
		utils.Respond(w, http.StatusBadRequest, "Invalid github link, [https://github.com/username] expected")
		return
	}
	if input.AltMobile != "" && !altMobilePattern.MatchString(input.AltMobile) {
		utils.Respond(w, http.StatusBadRequest, "Invalid alternate mobile number")
		return
	}
	if input.YearsOfExperience < 0 || input.YearsOfExperience > 5 {
		utils.Respond(w, http.StatusBadRequest, "year_of_experience should be between 0 and 5")
		return
	}

	if err := h.DB.Model(student).Updates(map[string]any{
		"alt_mobile":          input.AltMobile,
		"alt_relation":        input.AltRelation,
		"current_location":    input.CurrentLocation,
		"current_address":     input.CurrentAddress,
		"git_link":            input.GitLink,
		"years_of_experience": input.YearsOfExperience,
		"skills":              pq.StringArray(input.Skills),
	}).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to update details")
		return
	}

	utils.Respond(w, http.StatusOK, "Your details are updated successfully")
}

func (h *Handler) studentViews(students []Student) []map[string]any {
	out := make([]map[string]any, 0, len(students))
	for _, s := range students {
		view := map[string]any{
			"id":                              s.ID,
			"sid":                             s.SID,
			"name":                            s.User.FullName(),
			"email":                           s.User.Email,
			"mobile":                          s.User.Mobile,
			"alt_number":                      s.AltMobile,
			"relation_with_alt_number_holder": s.AltRelation,
			"current_location":                s.CurrentLocation,
			"current_address":                 s.CurrentAddress,
			"git_link":                        s.GitLink,
			"year_of_experience":              s.YearsOfExperience,
			"skills":                          s.Skills,
			"course_assigned":                 s.CourseAssigned,
		}
		var scm StudentCourseMentor
		if err := h.DB.Preload("Course").Preload("Mentor.User").
			First(&scm, "student_id = ?", s.ID).Error; err == nil {
			if scm.Course != nil {
				view["course"] = scm.Course.Name
			}
			if scm.Mentor != nil {
				view["mentor"] = scm.Mentor.User.FullName()
			}
		}
		out = append(out, view)
	}
	return out
}

// ---- education ----

func (h *Handler) AddEducationHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	student, err := h.studentForUser(authUser.UserID)
	if err != nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}

	var input Education
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if !ValidDegree(input.Degree) {
		utils.Respond(w, http.StatusBadRequest, "degree must be one of TENTH, HS, UG, PG")
		return
	}

	// One record per degree level.
	var count int64
	h.DB.Model(&Education{}).
		Where("student_id = ? AND degree = ?", student.ID, input.Degree).
		Count(&count)
	if count > 0 {
		utils.Respond(w, http.StatusAlreadyReported, fmt.Sprintf("%s record is already present", input.Degree))
		return
	}

	input.ID = 0
	input.StudentID = student.ID
	if err := h.DB.Create(&input).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to add education record")
		return
	}

	utils.Respond(w, http.StatusCreated, fmt.Sprintf("%s record is added", input.Degree))
}

func (h *Handler) EducationsHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	student, err := h.studentForUser(authUser.UserID)
	if err != nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}

	var records []Education
	if err := h.DB.Where("student_id = ?", student.ID).Order("id").Find(&records).Error; err != nil || len(records) == 0 {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}
	utils.RespondData(w, http.StatusOK, records)
}

func (h *Handler) UpdateEducationHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	student, err := h.studentForUser(authUser.UserID)
	if err != nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}
	id, err := strconv.Atoi(pathParam(r, "educationID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid education id")
		return
	}

	var record Education
	if err := h.DB.First(&record, "id = ? AND student_id = ?", id, student.ID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}

	var input Education
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if input.Degree != "" && !ValidDegree(input.Degree) {
		utils.Respond(w, http.StatusBadRequest, "degree must be one of TENTH, HS, UG, PG")
		return
	}

	updates := map[string]any{
		"institute":  input.Institute,
		"stream":     input.Stream,
		"percentage": input.Percentage,
		"from_date":  input.FromDate,
		"till":       input.Till,
	}
	if input.Degree != "" {
		updates["degree"] = input.Degree
	}
	if err := h.DB.Model(&record).Updates(updates).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to update education record")
		return
	}

	utils.Respond(w, http.StatusOK, "Education record is updated")
}

// ---- student-course-mentor mapping ----

func (h *Handler) NewStudentsHandler(w http.ResponseWriter, r *http.Request) {
	var students []Student
	if err := h.DB.Preload("User").Where("course_assigned = ?", false).Find(&students).Error; err != nil || len(students) == 0 {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}
	utils.RespondData(w, http.StatusOK, h.studentViews(students))
}

// mentorTeaches reports whether the course sits in the mentor's bucket.
func (h *Handler) mentorTeaches(mentorID, courseID uint) bool {
	var count int64
	h.DB.Table("mentor_courses").
		Where("mentor_id = ? AND course_id = ?", mentorID, courseID).
		Count(&count)
	return count > 0
}

func (h *Handler) AddStudentCourseMentorHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}

	var input struct {
		StudentID uint  `json:"student_id"`
		CourseID  *uint `json:"course_id"`
		MentorID  *uint `json:"mentor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.StudentID == 0 {
		utils.Respond(w, http.StatusBadRequest, "student_id is required")
		return
	}
	if input.CourseID == nil || input.MentorID == nil {
		utils.Respond(w, http.StatusBadRequest, "Mentor or Course can not be Null")
		return
	}

	var student Student
	if err := h.DB.Preload("User").First(&student, input.StudentID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}
	var course Course
	if err := h.DB.First(&course, *input.CourseID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Course with given id does not exist")
		return
	}
	var mentor Mentor
	if err := h.DB.Preload("User").First(&mentor, *input.MentorID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Mentor id does not exist")
		return
	}
	if !h.mentorTeaches(mentor.ID, course.ID) {
		utils.Respond(w, http.StatusNotFound,
			fmt.Sprintf("%s is not in %s's bucket", course.Name, mentor.User.FullName()))
		return
	}

	record := StudentCourseMentor{
		StudentID:   student.ID,
		CourseID:    &course.ID,
		MentorID:    &mentor.ID,
		CreatedByID: authUser.UserID,
		UpdatedByID: authUser.UserID,
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(&student).Update("course_assigned", true).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Respond(w, http.StatusBadRequest, "This student already has a course assigned")
			return
		}
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to add record")
		return
	}

	h.Log.Infof("course %s assigned to %s under %s", course.CID, student.SID, mentor.MID)
	utils.Respond(w, http.StatusCreated, "Record added")
}

func (h *Handler) UpdateStudentCourseMentorHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	studentID, err := strconv.Atoi(pathParam(r, "studentID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid student id")
		return
	}

	var input struct {
		CourseID *uint `json:"course_id"`
		MentorID *uint `json:"mentor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if input.CourseID == nil || input.MentorID == nil {
		utils.Respond(w, http.StatusBadRequest, "Mentor or Course can not be Null")
		return
	}

	var record StudentCourseMentor
	if err := h.DB.Preload("Student.User").First(&record, "student_id = ?", studentID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, fmt.Sprintf("record with id %d does not exist", studentID))
		return
	}
	var course Course
	if err := h.DB.First(&course, *input.CourseID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Course with given id does not exist")
		return
	}
	var mentor Mentor
	if err := h.DB.Preload("User").First(&mentor, *input.MentorID).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Mentor id does not exist")
		return
	}

	// Re-assigning the same course is treated as a mistake, not a no-op.
	if record.CourseID != nil && *record.CourseID == course.ID {
		utils.Respond(w, http.StatusNotAcceptable,
			fmt.Sprintf("%s is already assigned to %s. Choose different one",
				course.Name, record.Student.User.FullName()))
		return
	}
	if !h.mentorTeaches(mentor.ID, course.ID) {
		utils.Respond(w, http.StatusNotFound,
			fmt.Sprintf("%s is not in %s's bucket", course.Name, mentor.User.FullName()))
		return
	}

	if err := h.DB.Model(&record).Updates(map[string]any{
		"course_id":     course.ID,
		"mentor_id":     mentor.ID,
		"updated_by_id": authUser.UserID,
	}).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to update record")
		return
	}

	utils.Respond(w, http.StatusOK, "Record updated")
}

// ---- performance ----

func (h *Handler) PerformancesHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}

	query := h.DB.Order("student_id, course_id, week_no")
	switch {
	case authUser.Role == utils.RoleStudent:
		student, err := h.studentForUser(authUser.UserID)
		if err != nil {
			utils.Respond(w, http.StatusNotFound, "Records not found")
			return
		}
		query = query.Where("student_id = ?", student.ID)
	case authUser.Role == utils.RoleMentor && !authUser.IsSuperuser:
		mentor, err := h.mentorForUser(authUser.UserID)
		if err != nil {
			utils.Respond(w, http.StatusNotFound, "Records not found")
			return
		}
		query = query.Where("mentor_id = ?", mentor.ID)
	}

	var records []Performance
	if err := query.Find(&records).Error; err != nil || len(records) == 0 {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}
	utils.RespondData(w, http.StatusOK, records)
}

// PerformanceForStudentHandler reads one student's score history, with the
// same role scoping as the student details endpoint.
func (h *Handler) PerformanceForStudentHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	id, err := strconv.Atoi(pathParam(r, "studentID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid student id")
		return
	}

	var student Student
	if err := h.DB.First(&student, id).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}
	switch {
	case authUser.Role == utils.RoleStudent && student.UserID != authUser.UserID:
		utils.Respond(w, http.StatusForbidden, "You are not allowed to access this resource")
		return
	case authUser.Role == utils.RoleMentor && !authUser.IsSuperuser:
		mentor, err := h.mentorForUser(authUser.UserID)
		if err != nil {
			utils.Respond(w, http.StatusNotFound, "Records not found")
			return
		}
		var count int64
		h.DB.Model(&StudentCourseMentor{}).
			Where("student_id = ? AND mentor_id = ?", student.ID, mentor.ID).
			Count(&count)
		if count == 0 {
			utils.Respond(w, http.StatusForbidden, "You are not allowed to access this resource")
			return
		}
	}

	var records []Performance
	if err := h.DB.Where("student_id = ?", student.ID).
		Order("course_id, week_no").Find(&records).Error; err != nil || len(records) == 0 {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}
	utils.RespondData(w, http.StatusOK, records)
}

// UpdatePerformanceHandler writes a single week's score. Weeks are filled in
// order: week N needs week N-1 scored first.
func (h *Handler) UpdatePerformanceHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	studentID, err := strconv.Atoi(pathParam(r, "studentID"))
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid student id")
		return
	}
	weekNo, err := strconv.Atoi(pathParam(r, "weekNo"))
	if err != nil || weekNo < 1 {
		utils.Respond(w, http.StatusBadRequest, "Invalid week number")
		return
	}

	var input struct {
		Score      float64 `json:"score"`
		ReviewDate string  `json:"review_date"`
		Remark     string  `json:"remark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if input.Score < ScoreMinValue || input.Score > ScoreMaxValue {
		utils.Respond(w, http.StatusBadRequest, fmt.Sprintf("SCORE should be between %v and %v", ScoreMinValue, ScoreMaxValue))
		return
	}
	reviewDate, err := parseReviewDate(input.ReviewDate)
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid date or date pattern found, [dd-mm-yyyy] expected")
		return
	}

	var mapping StudentCourseMentor
	if err := h.DB.Preload("Student.User").First(&mapping, "student_id = ?", studentID).Error; err != nil ||
		mapping.CourseID == nil || mapping.MentorID == nil {
		utils.Respond(w, http.StatusNotFound, "Records not found")
		return
	}

	if authUser.Role == utils.RoleMentor && !authUser.IsSuperuser {
		mentor, err := h.mentorForUser(authUser.UserID)
		if err != nil || mentor.ID != *mapping.MentorID {
			utils.Respond(w, http.StatusForbidden, "You are not allowed to access this resource")
			return
		}
	}

	if weekNo > 1 {
		var count int64
		h.DB.Model(&Performance{}).
			Where("student_id = ? AND course_id = ? AND week_no = ? AND score > 0",
				mapping.StudentID, *mapping.CourseID, weekNo-1).
			Count(&count)
		if count == 0 {
			utils.Respond(w, http.StatusBadRequest, "Need to update previous weeks first")
			return
		}
	}

	record := Performance{
		StudentID:  mapping.StudentID,
		MentorID:   mapping.MentorID,
		CourseID:   *mapping.CourseID,
		WeekNo:     weekNo,
		Score:      input.Score,
		ReviewDate: reviewDate,
		Remark:     input.Remark,
	}
	var existing Performance
	err = h.DB.First(&existing, "student_id = ? AND course_id = ? AND week_no = ?",
		mapping.StudentID, *mapping.CourseID, weekNo).Error
	if err == nil {
		record.ID = existing.ID
		err = h.DB.Save(&record).Error
	} else {
		err = h.DB.Create(&record).Error
	}
	if err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to update score")
		return
	}

	utils.Respond(w, http.StatusOK,
		fmt.Sprintf("Score updated for %s's week %d review", mapping.Student.User.FullName(), weekNo))
}

func parseReviewDate(s string) (t time.Time, err error) {
	return time.Parse("02-01-2006", s)
}

// UploadScoresHandler ingests a whole .xlsx of weekly scores. Structural
// problems reject the file outright; row-level failures are collected and the
// remaining rows still land.
func (h *Handler) UploadScoresHandler(w http.ResponseWriter, r *http.Request) {
	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	isAdmin := authUser.Role == utils.RoleAdmin || authUser.IsSuperuser

	file, _, err := r.FormFile("file")
	if err != nil {
		utils.Respond(w, http.StatusBadRequest, "Excel file is required")
		return
	}
	defer file.Close()

	rows, err := ParseScoreSheet(file, isAdmin)
	if err != nil {
		var ve *ExcelError
		if errors.As(err, &ve) {
			utils.Respond(w, http.StatusBadRequest, ve.Message)
			return
		}
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to read the excel file")
		return
	}

	var uploaderMentor *Mentor
	if !isAdmin {
		uploaderMentor, err = h.mentorForUser(authUser.UserID)
		if err != nil {
			utils.Respond(w, http.StatusNotFound, "Records not found")
			return
		}
	}

	var rowErrors []string
	for i, row := range rows {
		if msg := h.applyScoreRow(row, uploaderMentor); msg != "" {
			rowErrors = append(rowErrors, fmt.Sprintf("Row_no-%d %s", i+1, msg))
		}
	}

	if len(rowErrors) == 0 {
		utils.Respond(w, http.StatusOK, "Record updated successfully")
		return
	}
	utils.Respond(w, http.StatusOK, "Record Partially updated! "+strings.Join(rowErrors, ", "))
}

// applyScoreRow writes one parsed row, returning a message on failure.
func (h *Handler) applyScoreRow(row ScoreRow, uploaderMentor *Mentor) string {
	var student Student
	if err := h.DB.First(&student, "sid = ?", row.SID).Error; err != nil {
		return "course-mentor-student mapping does not exist"
	}
	var course Course
	if err := h.DB.First(&course, "cid = ?", row.CID).Error; err != nil {
		return "course-mentor-student mapping does not exist"
	}

	mentor := uploaderMentor
	if mentor == nil {
		var m Mentor
		if err := h.DB.First(&m, "mid = ?", row.MID).Error; err != nil {
			return "course-mentor-student mapping does not exist"
		}
		mentor = &m
	}

	var count int64
	h.DB.Model(&StudentCourseMentor{}).
		Where("student_id = ? AND course_id = ? AND mentor_id = ?", student.ID, course.ID, mentor.ID).
		Count(&count)
	if count == 0 {
		return "course-mentor-student mapping does not exist"
	}

	var existing int64
	h.DB.Model(&Performance{}).
		Where("student_id = ? AND course_id = ? AND week_no = ?", student.ID, course.ID, row.WeekNo).
		Count(&existing)
	if existing > 0 {
		return "Duplicate Entry found, Data is already saved"
	}

	record := Performance{
		StudentID:  student.ID,
		MentorID:   &mentor.ID,
		CourseID:   course.ID,
		WeekNo:     row.WeekNo,
		Score:      row.Score,
		ReviewDate: row.ReviewDate,
		Remark:     row.Remarks,
	}
	if err := h.DB.Create(&record).Error; err != nil {
		h.Log.Error(err)
		return "could not save the record"
	}
	return ""
}
