package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

type RecommendationType string

const (
	RecommendationCollege    RecommendationType = "college"
	RecommendationSchool     RecommendationType = "school"
	RecommendationProfession RecommendationType = "profession"
)

const DefaultGrade = "9"

// Account is the single persisted user record shared by every repository backend.
// Secret fields are tagged json:"-"; clients only ever see PublicAccount.
type Account struct {
	ID       string `json:"id" bson:"_id"`
	Name     string `json:"name" bson:"name"`
	Surname  string `json:"surname" bson:"surname"`
	Email    string `json:"email" bson:"email"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
	Role     Role   `json:"role" bson:"role"`
	Password string `json:"-" bson:"password_hash"`

	IsEmailVerified          bool       `json:"-" bson:"is_email_verified"`
	IsPhoneVerified          bool       `json:"-" bson:"is_phone_verified"`
	EmailVerificationToken   string     `json:"-" bson:"email_verification_token,omitempty"`
	EmailVerificationExpires *time.Time `json:"-" bson:"email_verification_expires,omitempty"`
	PhoneVerificationCode    string     `json:"-" bson:"phone_verification_code,omitempty"`
	PhoneVerificationExpires *time.Time `json:"-" bson:"phone_verification_expires,omitempty"`

	PasswordResetToken   string     `json:"-" bson:"password_reset_token,omitempty"`
	PasswordResetExpires *time.Time `json:"-" bson:"password_reset_expires,omitempty"`

	TwoFactorSecret    string `json:"-" bson:"two_factor_secret,omitempty"`
	IsTwoFactorEnabled bool   `json:"-" bson:"is_two_factor_enabled"`

	LoginAttempts int        `json:"-" bson:"login_attempts"`
	LockUntil     *time.Time `json:"-" bson:"lock_until,omitempty"`

	LinkedUsers []string    `json:"-" bson:"linked_users"`
	Profile     Profile     `json:"-" bson:"profile"`
	Preferences Preferences `json:"-" bson:"preferences"`

	LastLogin *time.Time `json:"-" bson:"last_login,omitempty"`
	CreatedAt time.Time  `json:"-" bson:"created_at"`
	UpdatedAt time.Time  `json:"-" bson:"updated_at"`
}

type Profile struct {
	Grade           string           `json:"grade" bson:"grade"`
	Interests       []string         `json:"interests" bson:"interests"`
	Subjects        []string         `json:"subjects" bson:"subjects"`
	TestResults     []TestResult     `json:"testResults" bson:"test_results"`
	Recommendations []Recommendation `json:"recommendations" bson:"recommendations"`
}

type TestResult struct {
	TestID      string          `json:"testId" bson:"test_id"`
	TestName    string          `json:"testName" bson:"test_name"`
	Score       float64         `json:"score" bson:"score"`
	Answers     json.RawMessage `json:"answers,omitempty" bson:"answers,omitempty" swaggertype:"object"`
	CompletedAt time.Time       `json:"completedAt" bson:"completed_at"`
}

type Recommendation struct {
	ID          string             `json:"id" bson:"id"`
	Type        RecommendationType `json:"type" bson:"type"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Match       float64            `json:"match" bson:"match"`
	Details     json.RawMessage    `json:"details,omitempty" bson:"details,omitempty" swaggertype:"object"`
	Saved       bool               `json:"saved" bson:"saved"`
}

type NotificationPreferences struct {
	Email bool `json:"email" bson:"email"`
	SMS   bool `json:"sms" bson:"sms"`
	Push  bool `json:"push" bson:"push"`
}

type PrivacyPreferences struct {
	ShareData   bool `json:"shareData" bson:"share_data"`
	ShowProfile bool `json:"showProfile" bson:"show_profile"`
}

type Preferences struct {
	Notifications NotificationPreferences `json:"notifications" bson:"notifications"`
	Privacy       PrivacyPreferences      `json:"privacy" bson:"privacy"`
}

// DefaultPreferences mirrors what a new account starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPreferences{Email: true, SMS: true, Push: true},
		Privacy:       PrivacyPreferences{ShareData: false, ShowProfile: false},
	}
}

// NewAccount returns an account with profile and preference defaults applied.
// The password hash must be set by the caller before it is persisted.
func NewAccount(id, name, surname, email, phone string, role Role, now time.Time) *Account {
	return &Account{
		ID:          id,
		Name:        name,
		Surname:     surname,
		Email:       email,
		Phone:       phone,
		Role:        role,
		LinkedUsers: []string{},
		Profile: Profile{
			Grade:           DefaultGrade,
			Interests:       []string{},
			Subjects:        []string{},
			TestResults:     []TestResult{},
			Recommendations: []Recommendation{},
		},
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasLink reports whether id is already in the linked set.
func (a *Account) HasLink(id string) bool {
	for _, l := range a.LinkedUsers {
		if l == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Repositories use it so stored state is never aliased.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.EmailVerificationExpires = cloneTime(a.EmailVerificationExpires)
	c.PhoneVerificationExpires = cloneTime(a.PhoneVerificationExpires)
	c.PasswordResetExpires = cloneTime(a.PasswordResetExpires)
	c.LockUntil = cloneTime(a.LockUntil)
	c.LastLogin = cloneTime(a.LastLogin)
	c.LinkedUsers = append([]string{}, a.LinkedUsers...)
	c.Profile.Interests = append([]string{}, a.Profile.Interests...)
	c.Profile.Subjects = append([]string{}, a.Profile.Subjects...)
	c.Profile.TestResults = make([]TestResult, len(a.Profile.TestResults))
	for i, r := range a.Profile.TestResults {
		r.Answers = append(json.RawMessage(nil), r.Answers...)
		c.Profile.TestResults[i] = r
	}
	c.Profile.Recommendations = make([]Recommendation, len(a.Profile.Recommendations))
	for i, r := range a.Profile.Recommendations {
		r.Details = append(json.RawMessage(nil), r.Details...)
		c.Profile.Recommendations[i] = r
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
