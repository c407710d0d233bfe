package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/audit"
	"github.com/eduguide/backend/internal/models"
	"github.com/google/uuid"
)

// ProfileService reads and updates the profile, test results, recommendations
// and preferences of the signed-in account.
type ProfileService struct {
	Dependencies
}

func NewProfileService(deps Dependencies) *ProfileService {
	return &ProfileService{Dependencies: deps.withDefaults()}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.PublicAccount, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}
	p := acc.Public()
	return &p, nil
}

// UpdateProfile applies only the fields present in req. A new phone number
// must be verified again.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*models.PublicAccount, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		acc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Surname != nil {
		acc.Surname = strings.TrimSpace(*req.Surname)
	}
	if req.Phone != nil && *req.Phone != acc.Phone {
		acc.Phone = *req.Phone
		acc.IsPhoneVerified = false
	}
	if p := req.Profile; p != nil {
		if p.Grade != nil {
			acc.Profile.Grade = *p.Grade
		}
		if p.Interests != nil {
			acc.Profile.Interests = p.Interests
		}
		if p.Subjects != nil {
			acc.Profile.Subjects = p.Subjects
		}
	}

	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	out := acc.Public()
	return &out, nil
}

// SaveTestResult stores a result, replacing any earlier result for the same test.
func (s *ProfileService) SaveTestResult(ctx context.Context, userID string, req TestResultRequest) (*models.TestResult, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}

	result := models.TestResult{
		TestID:      req.TestID,
		TestName:    req.TestName,
		Score:       *req.Score,
		Answers:     req.Answers,
		CompletedAt: s.Now().UTC(),
	}

	kept := acc.Profile.TestResults[:0]
	for _, r := range acc.Profile.TestResults {
		if r.TestID != req.TestID {
			kept = append(kept, r)
		}
	}
	acc.Profile.TestResults = append(kept, result)

	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	return &result, nil
}

func (s *ProfileService) ListTestResults(ctx context.Context, userID string) ([]models.TestResult, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}
	return acc.Profile.TestResults, nil
}

// SaveRecommendation appends a new unsaved recommendation with a generated id.
func (s *ProfileService) SaveRecommendation(ctx context.Context, userID string, req RecommendationRequest) (*models.Recommendation, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}

	details := req.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}
	rec := models.Recommendation{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Match:       *req.Match,
		Details:     details,
		Saved:       false,
	}
	acc.Profile.Recommendations = append(acc.Profile.Recommendations, rec)

	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	return &rec, nil
}

func (s *ProfileService) ListRecommendations(ctx context.Context, userID string) ([]models.Recommendation, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}
	return acc.Profile.Recommendations, nil
}

func (s *ProfileService) SetRecommendationSaved(ctx context.Context, userID, recommendationID string, saved bool) (*models.Recommendation, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range acc.Profile.Recommendations {
		if acc.Profile.Recommendations[i].ID == recommendationID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperrors.NotFound("Recommendation not found")
	}

	acc.Profile.Recommendations[idx].Saved = saved
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	rec := acc.Profile.Recommendations[idx]
	return &rec, nil
}

// UpdatePreferences merges the provided flags over the stored ones.
func (s *ProfileService) UpdatePreferences(ctx context.Context, userID string, req PreferencesRequest) (*models.Preferences, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}

	acc.Preferences = mergePreferences(acc.Preferences, req)
	if err := s.Accounts.Save(ctx, acc); err != nil {
		return nil, storageFailure("save account", err)
	}
	prefs := acc.Preferences
	return &prefs, nil
}

func mergePreferences(p models.Preferences, req PreferencesRequest) models.Preferences {
	if n := req.Notifications; n != nil {
		setIfPresent(&p.Notifications.Email, n.Email)
		setIfPresent(&p.Notifications.SMS, n.SMS)
		setIfPresent(&p.Notifications.Push, n.Push)
	}
	if pr := req.Privacy; pr != nil {
		setIfPresent(&p.Privacy.ShareData, pr.ShareData)
		setIfPresent(&p.Privacy.ShowProfile, pr.ShowProfile)
	}
	return p
}

func setIfPresent(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// DeleteAccount re-checks the password, removes the account from its partners'
// linked sets and deletes it.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID, password string) error {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return err
	}
	if !s.Hasher.Verify(password, acc.Password) {
		s.Audit.Failure(audit.EventAccountDeleted, acc.ID, map[string]string{"reason": "invalid_password"})
		return apperrors.Authentication(msgInvalidPassword)
	}

	if err := s.Accounts.RemoveLinksTo(ctx, acc.ID); err != nil {
		return storageFailure("unlink account", err)
	}
	if err := s.Accounts.Delete(ctx, acc.ID); err != nil {
		return storageFailure("delete account", err)
	}

	s.Audit.Success(audit.EventAccountDeleted, acc.ID, nil)
	return nil
}
