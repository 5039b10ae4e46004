package management

import (
	"fmt"
	"strings"
	"time"

	"github.com/MentorLoop/LMS-Backend/internal/auth"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Course struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	CID  string `gorm:"column:cid;uniqueIndex" json:"cid"`
	Name string `gorm:"uniqueIndex;not null" json:"course_name"`
}

// Course names are stored upper-cased so "golang" and "GoLang" collide on
// the unique index.
func (c *Course) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.ToUpper(strings.TrimSpace(c.Name))
	return nil
}

func (c *Course) AfterCreate(tx *gorm.DB) error {
	c.CID = fmt.Sprintf("CI-%04d", c.ID)
	return tx.Model(c).UpdateColumn("cid", c.CID).Error
}

type Mentor struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	MID     string    `gorm:"column:mid;uniqueIndex" json:"mid"`
	UserID  string    `gorm:"uniqueIndex;not null" json:"user_id"`
	User    auth.User `gorm:"foreignKey:UserID" json:"-"`
	Courses []Course  `gorm:"many2many:mentor_courses" json:"course"`
}

func (m *Mentor) AfterCreate(tx *gorm.DB) error {
	m.MID = fmt.Sprintf("MI-%04d", m.ID)
	return tx.Model(m).UpdateColumn("mid", m.MID).Error
}

type Student struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	SID               string         `gorm:"column:sid;uniqueIndex" json:"sid"`
	UserID            string         `gorm:"uniqueIndex;not null" json:"user_id"`
	User              auth.User      `gorm:"foreignKey:UserID" json:"-"`
	AltMobile         string         `json:"alt_number"`
	AltRelation       string         `json:"relation_with_alt_number_holder"`
	CurrentLocation   string         `json:"current_location"`
	CurrentAddress    string         `json:"current_address"`
	GitLink           string         `json:"git_link"`
	YearsOfExperience int            `json:"year_of_experience"`
	Skills            pq.StringArray `gorm:"type:text[]" json:"skills"`
	CourseAssigned    bool           `json:"course_assigned"`
}

func (s *Student) AfterCreate(tx *gorm.DB) error {
	s.SID = fmt.Sprintf("SI-%04d", s.ID)
	return tx.Model(s).UpdateColumn("sid", s.SID).Error
}

// Education degrees form a closed set.
const (
	DegreeTenth = "TENTH"
	DegreeHS    = "HS"
	DegreeUG    = "UG"
	DegreePG    = "PG"
)

func ValidDegree(d string) bool {
	switch d {
	case DegreeTenth, DegreeHS, DegreeUG, DegreePG:
		return true
	}
	return false
}

type Education struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	StudentID  uint       `gorm:"index;not null" json:"student_id"`
	Institute  string     `json:"institute"`
	Degree     string     `json:"degree"`
	Stream     string     `json:"stream"`
	Percentage float64    `json:"percentage"`
	FromDate   *time.Time `json:"from_date"`
	Till       *time.Time `json:"till"`
}

// StudentCourseMentor maps each student to at most one course and mentor.
type StudentCourseMentor struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	StudentID   uint    `gorm:"uniqueIndex;not null" json:"student_id"`
	Student     Student `gorm:"foreignKey:StudentID" json:"-"`
	CourseID    *uint   `json:"course_id"`
	Course      *Course `gorm:"foreignKey:CourseID" json:"-"`
	MentorID    *uint   `json:"mentor_id"`
	Mentor      *Mentor `gorm:"foreignKey:MentorID" json:"-"`
	CreatedByID string  `json:"created_by"`
	UpdatedByID string  `json:"updated_by"`
}

type Performance struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  uint      `gorm:"uniqueIndex:idx_perf_student_course_week;not null" json:"student_id"`
	MentorID   *uint     `json:"mentor_id"`
	CourseID   uint      `gorm:"uniqueIndex:idx_perf_student_course_week;not null" json:"course_id"`
	WeekNo     int       `gorm:"uniqueIndex:idx_perf_student_course_week;not null" json:"week_no"`
	Score      float64   `json:"score"`
	ReviewDate time.Time `json:"review_date"`
	Remark     string    `json:"remark"`
}
