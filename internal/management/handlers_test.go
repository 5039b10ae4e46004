package management

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MentorLoop/LMS-Backend/internal/auth"
	"github.com/MentorLoop/LMS-Backend/internal/cache"
	"github.com/MentorLoop/LMS-Backend/internal/db"
	"github.com/MentorLoop/LMS-Backend/internal/logging"
	"github.com/MentorLoop/LMS-Backend/internal/middleware"
	"github.com/MentorLoop/LMS-Backend/internal/token"
	"github.com/MentorLoop/LMS-Backend/internal/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mgmtEnv struct {
	db     *gorm.DB
	codec  *token.Codec
	store  *cache.SessionStore
	mailer *stubMailer
	server *httptest.Server
}

type stubMailer struct {
	registrations []auth.RegistrationMail
}

func (m *stubMailer) SendRegistration(r auth.RegistrationMail) error {
	m.registrations = append(m.registrations, r)
	return nil
}

func (m *stubMailer) SendPasswordReset(auth.ResetMail) error { return nil }

func setupMgmtEnv(t *testing.T) *mgmtEnv {
	t.Helper()

	gdb, err := db.ConnectTest()
	require.NoError(t, err)
	require.NoError(t, auth.Init(gdb))
	require.NoError(t, Init(gdb))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewSessionStore(client, time.Hour)

	codec := token.NewCodec("test-secret", time.Hour)
	log := logging.New()
	mailer := &stubMailer{}

	authHandler := &auth.Handler{
		DB:     gdb,
		Store:  store,
		Codec:  codec,
		Mailer: mailer,
		Log:    log,
		Site:   "lms.test",
	}
	h := &Handler{DB: gdb, Log: log, Auth: authHandler}
	mw := &middleware.Auth{Codec: codec, Store: store, Users: &auth.UserInfo{DB: gdb}}

	mux := http.NewServeMux()
	mux.Handle("/management/", http.StripPrefix("/management", h.SetupRoutes(mw)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &mgmtEnv{db: gdb, codec: codec, store: store, mailer: mailer, server: srv}
}

var userSeq atomic.Int64

// createUser inserts an active account plus its role profile and returns a
// live bearer token for it.
func (e *mgmtEnv) createUser(t *testing.T, first, last string, role utils.Role) (*auth.User, string) {
	t.Helper()
	n := userSeq.Add(1)
	username := fmt.Sprintf("%s%d", strings.ToLower(first), n)
	hashed, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	now := time.Now()
	user := &auth.User{
		UserID:         uuid.New().String(),
		Username:       username,
		FirstName:      first,
		LastName:       last,
		Email:          username + "@lms.test",
		Mobile:         fmt.Sprintf("98761%05d", n),
		HashedPassword: hashed,
		Role:           role,
		LastLogin:      &now,
	}
	require.NoError(t, e.db.Create(user).Error)
	require.NoError(t, CreateProfileForUser(e.db, user))

	bearer, err := e.codec.Issue(user.Username, user.HashedPassword)
	require.NoError(t, err)
	require.NoError(t, e.store.Put(context.Background(), user.Username, bearer))
	return user, bearer
}

func (e *mgmtEnv) mentorFor(t *testing.T, user *auth.User) *Mentor {
	t.Helper()
	var m Mentor
	require.NoError(t, e.db.Preload("User").First(&m, "user_id = ?", user.UserID).Error)
	return &m
}

func (e *mgmtEnv) studentFor(t *testing.T, user *auth.User) *Student {
	t.Helper()
	var s Student
	require.NoError(t, e.db.Preload("User").First(&s, "user_id = ?", user.UserID).Error)
	return &s
}

func (e *mgmtEnv) addCourse(t *testing.T, name string) *Course {
	t.Helper()
	course := &Course{Name: name}
	require.NoError(t, e.db.Create(course).Error)
	return course
}

func (e *mgmtEnv) putInBucket(t *testing.T, mentor *Mentor, course *Course) {
	t.Helper()
	require.NoError(t, e.db.Model(mentor).Association("Courses").Append(course))
}

func (e *mgmtEnv) request(t *testing.T, method, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestAddCourseUppercasedAndDeduplicated(t *testing.T) {
	env := setupMgmtEnv(t)
	_, adminBearer := env.createUser(t, "Ada", "Admin", utils.RoleAdmin)

	resp, body := env.request(t, http.MethodPost, "/management/course", adminBearer,
		map[string]string{"course_name": "golang"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "GOLANG is added in course", body["response"])

	// Different casing collides with the stored upper-cased name.
	resp, body = env.request(t, http.MethodPost, "/management/course", adminBearer,
		map[string]string{"course_name": "GoLang"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "GOLANG is already present", body["response"])

	var course Course
	require.NoError(t, env.db.First(&course, "name = ?", "GOLANG").Error)
	assert.Equal(t, fmt.Sprintf("CI-%04d", course.ID), course.CID)
}

func TestUpdateAndDeleteCourse(t *testing.T) {
	env := setupMgmtEnv(t)
	_, adminBearer := env.createUser(t, "Ada", "Admin", utils.RoleAdmin)
	course := env.addCourse(t, "python")

	resp, body := env.request(t, http.MethodPut,
		fmt.Sprintf("/management/course/%d", course.ID), adminBearer,
		map[string]string{"course_name": "advanced python"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Course name is updated to ADVANCED PYTHON", body["response"])

	resp, body = env.request(t, http.MethodPut, "/management/course/999", adminBearer,
		map[string]string{"course_name": "whatever"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Course with given id does not exist", body["response"])

	resp, body = env.request(t, http.MethodDelete,
		fmt.Sprintf("/management/course/%d", course.ID), adminBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ADVANCED PYTHON is deleted", body["response"])

	resp, body = env.request(t, http.MethodDelete,
		fmt.Sprintf("/management/course/%d", course.ID), adminBearer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Course not found with this id", body["response"])
}

func TestCourseCatalogVisibleToAllRoles(t *testing.T) {
	env := setupMgmtEnv(t)
	env.addCourse(t, "golang")
	_, studentBearer := env.createUser(t, "Sam", "Student", utils.RoleStudent)

	resp, body := env.request(t, http.MethodGet, "/management/course", studentBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	courses, ok := body["response"].([]any)
	require.True(t, ok)
	assert.Len(t, courses, 1)
}

func TestCourseAdminOnlyForWrites(t *testing.T) {
	env := setupMgmtEnv(t)
	_, mentorBearer := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)

	resp, _ := env.request(t, http.MethodPost, "/management/course", mentorBearer,
		map[string]string{"course_name": "golang"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCourseToMentorBucket(t *testing.T) {
	env := setupMgmtEnv(t)
	_, adminBearer := env.createUser(t, "Ada", "Admin", utils.RoleAdmin)
	mentorUser, _ := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)
	mentor := env.mentorFor(t, mentorUser)
	course := env.addCourse(t, "golang")

	resp, body := env.request(t, http.MethodPut,
		fmt.Sprintf("/management/course-mentor/%d", mentor.ID), adminBearer,
		map[string]uint{"course_id": course.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "New course added to Mia Mentor's course list", body["response"])

	resp, body = env.request(t, http.MethodPut,
		fmt.Sprintf("/management/course-mentor/%d", mentor.ID), adminBearer,
		map[string]uint{"course_id": course.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "This course is already added", body["response"])

	resp, body = env.request(t, http.MethodPut, "/management/course-mentor/999", adminBearer,
		map[string]uint{"course_id": course.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Mentor id does not exist", body["response"])

	resp, body = env.request(t, http.MethodDelete,
		fmt.Sprintf("/management/course-mentor/%d", mentor.ID), adminBearer,
		map[string]uint{"course_id": course.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GOLANG is removed", body["response"])

	resp, body = env.request(t, http.MethodDelete,
		fmt.Sprintf("/management/course-mentor/%d", mentor.ID), adminBearer,
		map[string]uint{"course_id": course.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "GOLANG is not in Mia Mentor's course list", body["response"])
}

func TestAddMentorEndpoint(t *testing.T) {
	env := setupMgmtEnv(t)
	_, adminBearer := env.createUser(t, "Ada", "Admin", utils.RoleAdmin)
	course := env.addCourse(t, "golang")

	resp, body := env.request(t, http.MethodPost, "/management/mentor", adminBearer, map[string]any{
		"first_name": "nina", "last_name": "verma",
		"email": "nina@lms.test", "mobile": "9876543210",
		"course_ids": []uint{course.ID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "A new Mentor is registered successfully", body["response"])

	require.Len(t, env.mailer.registrations, 1)
	assert.Equal(t, "nina@lms.test", env.mailer.registrations[0].Username)

	var mentor Mentor
	require.NoError(t, env.db.Preload("User").Preload("Courses").
		First(&mentor, "mid LIKE ?", "MI-%").Error)
	assert.Equal(t, utils.RoleMentor, mentor.User.Role)
	require.Len(t, mentor.Courses, 1)
	assert.Equal(t, "GOLANG", mentor.Courses[0].Name)

	// The fresh account is in the first-login state.
	assert.Nil(t, mentor.User.LastLogin)

	resp, body = env.request(t, http.MethodPost, "/management/mentor", adminBearer, map[string]any{
		"first_name": "nina", "last_name": "verma",
		"email": "nina@lms.test", "mobile": "9876543210",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "A user with this username, email or mobile is already present", body["response"])
}

func TestMentorsListing(t *testing.T) {
	env := setupMgmtEnv(t)
	_, adminBearer := env.createUser(t, "Ada", "Admin", utils.RoleAdmin)
	mentorUser, mentorBearer := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)
	env.createUser(t, "Omar", "Mentor", utils.RoleMentor)

	resp, body := env.request(t, http.MethodGet, "/management/mentor", adminBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all, ok := body["response"].([]any)
	require.True(t, ok)
	assert.Len(t, all, 2)

	// A mentor sees only their own record.
	resp, body = env.request(t, http.MethodGet, "/management/mentor", mentorBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	own, ok := body["response"].([]any)
	require.True(t, ok)
	require.Len(t, own, 1)
	record := own[0].(map[string]any)
	assert.Equal(t, env.mentorFor(t, mentorUser).MID, record["mid"])
}

// assignStudent wires up the full student-course-mentor chain used by the
// performance tests.
func (e *mgmtEnv) assignStudent(t *testing.T, student *Student, course *Course, mentor *Mentor) {
	t.Helper()
	require.NoError(t, e.db.Create(&StudentCourseMentor{
		StudentID: student.ID,
		CourseID:  &course.ID,
		MentorID:  &mentor.ID,
	}).Error)
	require.NoError(t, e.db.Model(student).Update("course_assigned", true).Error)
}

func TestStudentCourseMentorMapping(t *testing.T) {
	env := setupMgmtEnv(t)
	_, adminBearer := env.createUser(t, "Ada", "Admin", utils.RoleAdmin)
	mentorUser, _ := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)
	studentUser, _ := env.createUser(t, "Sam", "Student", utils.RoleStudent)
	mentor := env.mentorFor(t, mentorUser)
	student := env.studentFor(t, studentUser)
	golang := env.addCourse(t, "golang")
	python := env.addCourse(t, "python")
	env.putInBucket(t, mentor, golang)
	env.putInBucket(t, mentor, python)

	// New students are the unassigned ones.
	resp, body := env.request(t, http.MethodGet, "/management/new-students", adminBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fresh, ok := body["response"].([]any)
	require.True(t, ok)
	assert.Len(t, fresh, 1)

	resp, body = env.request(t, http.MethodPost, "/management/student-course-mentor", adminBearer,
		map[string]any{"student_id": student.ID, "mentor_id": mentor.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Mentor or Course can not be Null", body["response"])

	ruby := env.addCourse(t, "ruby") // not in the bucket
	resp, body = env.request(t, http.MethodPost, "/management/student-course-mentor", adminBearer,
		map[string]any{"student_id": student.ID, "course_id": ruby.ID, "mentor_id": mentor.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RUBY is not in Mia Mentor's bucket", body["response"])

	resp, body = env.request(t, http.MethodPost, "/management/student-course-mentor", adminBearer,
		map[string]any{"student_id": student.ID, "course_id": golang.ID, "mentor_id": mentor.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Record added", body["response"])

	var assigned Student
	require.NoError(t, env.db.First(&assigned, student.ID).Error)
	assert.True(t, assigned.CourseAssigned)

	// Once assigned, the student drops out of the new-students list.
	resp, _ = env.request(t, http.MethodGet, "/management/new-students", adminBearer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Re-assigning the same course is refused.
	resp, body = env.request(t, http.MethodPut,
		fmt.Sprintf("/management/student-course-mentor/%d", student.ID), adminBearer,
		map[string]any{"course_id": golang.ID, "mentor_id": mentor.ID})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
	assert.Equal(t, "GOLANG is already assigned to Sam Student. Choose different one", body["response"])

	resp, body = env.request(t, http.MethodPut,
		fmt.Sprintf("/management/student-course-mentor/%d", student.ID), adminBearer,
		map[string]any{"course_id": python.ID, "mentor_id": mentor.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Record updated", body["response"])

	resp, body = env.request(t, http.MethodPut, "/management/student-course-mentor/999", adminBearer,
		map[string]any{"course_id": python.ID, "mentor_id": mentor.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "record with id 999 does not exist", body["response"])
}

func TestStudentDetailsUpdate(t *testing.T) {
	env := setupMgmtEnv(t)
	_, studentBearer := env.createUser(t, "Sam", "Student", utils.RoleStudent)

	resp, body := env.request(t, http.MethodPut, "/management/student", studentBearer, map[string]any{
		"git_link": "https://gitlab.com/sam",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid github link, [https://github.com/username] expected", body["response"])

	resp, body = env.request(t, http.MethodPut, "/management/student", studentBearer, map[string]any{
		"git_link":                        "https://github.com/sam42",
		"alt_number":                      "9876598765",
		"relation_with_alt_number_holder": "father",
		"current_location":                "Chennai",
		"year_of_experience":              2,
		"skills":                          []string{"go", "sql"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Your details are updated successfully", body["response"])

	var s Student
	require.NoError(t, env.db.First(&s, "git_link = ?", "https://github.com/sam42").Error)
	assert.Equal(t, "Chennai", s.CurrentLocation)
	assert.Equal(t, 2, s.YearsOfExperience)
	assert.EqualValues(t, []string{"go", "sql"}, s.Skills)
}

func TestEducationRecords(t *testing.T) {
	env := setupMgmtEnv(t)
	_, studentBearer := env.createUser(t, "Sam", "Student", utils.RoleStudent)

	resp, body := env.request(t, http.MethodPost, "/management/education", studentBearer, map[string]any{
		"degree": "PhD",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.request(t, http.MethodPost, "/management/education", studentBearer, map[string]any{
		"institute": "State University", "degree": "UG", "stream": "CS", "percentage": 81.5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "UG record is added", body["response"])

	// One record per degree level.
	resp, body = env.request(t, http.MethodPost, "/management/education", studentBearer, map[string]any{
		"institute": "Other University", "degree": "UG", "stream": "IT", "percentage": 70.0,
	})
	assert.Equal(t, http.StatusAlreadyReported, resp.StatusCode)
	assert.Equal(t, "UG record is already present", body["response"])

	resp, body = env.request(t, http.MethodGet, "/management/education", studentBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records, ok := body["response"].([]any)
	require.True(t, ok)
	require.Len(t, records, 1)
	id := records[0].(map[string]any)["id"].(float64)

	resp, body = env.request(t, http.MethodPut,
		fmt.Sprintf("/management/education/%d", int(id)), studentBearer, map[string]any{
			"institute": "State University", "degree": "UG", "stream": "CS", "percentage": 84.0,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Education record is updated", body["response"])
}

func TestPerformanceWeekOrdering(t *testing.T) {
	env := setupMgmtEnv(t)
	mentorUser, mentorBearer := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)
	studentUser, studentBearer := env.createUser(t, "Sam", "Student", utils.RoleStudent)
	mentor := env.mentorFor(t, mentorUser)
	student := env.studentFor(t, studentUser)
	course := env.addCourse(t, "golang")
	env.putInBucket(t, mentor, course)
	env.assignStudent(t, student, course, mentor)

	// Week 2 before week 1 is refused.
	resp, body := env.request(t, http.MethodPut,
		fmt.Sprintf("/management/performance/%d/2", student.ID), mentorBearer,
		map[string]any{"score": 8.0, "review_date": "22-01-2026", "remark": "ok"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Need to update previous weeks first", body["response"])

	resp, body = env.request(t, http.MethodPut,
		fmt.Sprintf("/management/performance/%d/1", student.ID), mentorBearer,
		map[string]any{"score": 7.5, "review_date": "15-01-2026", "remark": "good start"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Score updated for Sam Student's week 1 review", body["response"])

	resp, body = env.request(t, http.MethodPut,
		fmt.Sprintf("/management/performance/%d/2", student.ID), mentorBearer,
		map[string]any{"score": 8.0, "review_date": "22-01-2026", "remark": "improving"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Rewriting an existing week overwrites in place.
	resp, _ = env.request(t, http.MethodPut,
		fmt.Sprintf("/management/performance/%d/1", student.ID), mentorBearer,
		map[string]any{"score": 9.0, "review_date": "16-01-2026", "remark": "revised"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	env.db.Model(&Performance{}).Where("student_id = ?", student.ID).Count(&count)
	assert.EqualValues(t, 2, count)

	// The student reads their own scores.
	resp, body = env.request(t, http.MethodGet, "/management/performance", studentBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records, ok := body["response"].([]any)
	require.True(t, ok)
	assert.Len(t, records, 2)

	// Per-student read, scoped the same way.
	resp, body = env.request(t, http.MethodGet,
		fmt.Sprintf("/management/performance/%d", student.ID), mentorBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records, ok = body["response"].([]any)
	require.True(t, ok)
	assert.Len(t, records, 2)
}

func TestPerformanceMentorOwnership(t *testing.T) {
	env := setupMgmtEnv(t)
	mentorUser, _ := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)
	_, otherBearer := env.createUser(t, "Omar", "Mentor", utils.RoleMentor)
	studentUser, _ := env.createUser(t, "Sam", "Student", utils.RoleStudent)
	mentor := env.mentorFor(t, mentorUser)
	student := env.studentFor(t, studentUser)
	course := env.addCourse(t, "golang")
	env.putInBucket(t, mentor, course)
	env.assignStudent(t, student, course, mentor)

	resp, _ := env.request(t, http.MethodPut,
		fmt.Sprintf("/management/performance/%d/1", student.ID), otherBearer,
		map[string]any{"score": 5.0, "review_date": "15-01-2026", "remark": "not mine"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// uploadSheet posts an in-memory workbook to the score upload endpoint.
func (e *mgmtEnv) uploadSheet(t *testing.T, bearer string, sheet *bytes.Buffer) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "scores.xlsx")
	require.NoError(t, err)
	_, err = io.Copy(part, sheet)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/management/performance/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestUploadScoresMentor(t *testing.T) {
	env := setupMgmtEnv(t)
	mentorUser, mentorBearer := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)
	studentUser, _ := env.createUser(t, "Sam", "Student", utils.RoleStudent)
	mentor := env.mentorFor(t, mentorUser)
	student := env.studentFor(t, studentUser)
	course := env.addCourse(t, "golang")
	env.putInBucket(t, mentor, course)
	env.assignStudent(t, student, course, mentor)

	sheet := buildSheet(t, [][]any{
		mentorHeader,
		{student.SID, course.CID, "week 1", "8", "15-01-2026", "good"},
		{student.SID, course.CID, "week 2", "9", "22-01-2026", "better"},
	})
	resp, body := env.uploadSheet(t, mentorBearer, sheet)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Record updated successfully", body["response"])

	var count int64
	env.db.Model(&Performance{}).Where("student_id = ?", student.ID).Count(&count)
	assert.EqualValues(t, 2, count)

	// Re-uploading the same weeks only reports duplicates.
	sheet = buildSheet(t, [][]any{
		mentorHeader,
		{student.SID, course.CID, "week 1", "8", "15-01-2026", "good"},
		{"SI-9999", course.CID, "week 1", "7", "15-01-2026", "unknown student"},
	})
	resp, body = env.uploadSheet(t, mentorBearer, sheet)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msg, ok := body["response"].(string)
	require.True(t, ok)
	assert.Contains(t, msg, "Record Partially updated!")
	assert.Contains(t, msg, "Row_no-1 Duplicate Entry found, Data is already saved")
	assert.Contains(t, msg, "Row_no-2 course-mentor-student mapping does not exist")
}

func TestUploadScoresAdminWithMID(t *testing.T) {
	env := setupMgmtEnv(t)
	_, adminBearer := env.createUser(t, "Ada", "Admin", utils.RoleAdmin)
	mentorUser, _ := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)
	studentUser, _ := env.createUser(t, "Sam", "Student", utils.RoleStudent)
	mentor := env.mentorFor(t, mentorUser)
	student := env.studentFor(t, studentUser)
	course := env.addCourse(t, "golang")
	env.putInBucket(t, mentor, course)
	env.assignStudent(t, student, course, mentor)

	// Admin uploads need the MID column; without it the file is rejected.
	sheet := buildSheet(t, [][]any{
		mentorHeader,
		{student.SID, course.CID, "week 1", "8", "15-01-2026", "good"},
	})
	resp, body := env.uploadSheet(t, adminBearer, sheet)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sheet = buildSheet(t, [][]any{
		{"SID", "CID", "MID", "WEEK", "SCORE", "REVIEW DATE", "REMARKS"},
		{student.SID, course.CID, mentor.MID, "week 1", "8", "15-01-2026", "good"},
	})
	resp, body = env.uploadSheet(t, adminBearer, sheet)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Record updated successfully", body["response"])

	var perf Performance
	require.NoError(t, env.db.First(&perf, "student_id = ?", student.ID).Error)
	require.NotNil(t, perf.MentorID)
	assert.Equal(t, mentor.ID, *perf.MentorID)
}

func TestStudentsRoleScoping(t *testing.T) {
	env := setupMgmtEnv(t)
	_, adminBearer := env.createUser(t, "Ada", "Admin", utils.RoleAdmin)
	mentorUser, mentorBearer := env.createUser(t, "Mia", "Mentor", utils.RoleMentor)
	samUser, samBearer := env.createUser(t, "Sam", "Student", utils.RoleStudent)
	_, _ = env.createUser(t, "Tara", "Student", utils.RoleStudent)
	mentor := env.mentorFor(t, mentorUser)
	sam := env.studentFor(t, samUser)
	course := env.addCourse(t, "golang")
	env.putInBucket(t, mentor, course)
	env.assignStudent(t, sam, course, mentor)

	resp, body := env.request(t, http.MethodGet, "/management/student", adminBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all, ok := body["response"].([]any)
	require.True(t, ok)
	assert.Len(t, all, 2)

	// The mentor sees only students mapped to them.
	resp, body = env.request(t, http.MethodGet, "/management/student", mentorBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine, ok := body["response"].([]any)
	require.True(t, ok)
	require.Len(t, mine, 1)
	assert.Equal(t, sam.SID, mine[0].(map[string]any)["sid"])

	// A student sees themselves, with the assigned course resolved.
	resp, body = env.request(t, http.MethodGet, "/management/student", samBearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	self, ok := body["response"].([]any)
	require.True(t, ok)
	require.Len(t, self, 1)
	view := self[0].(map[string]any)
	assert.Equal(t, "GOLANG", view["course"])
	assert.Equal(t, "Mia Mentor", view["mentor"])
}
