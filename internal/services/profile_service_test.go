package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestProfileService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	svc := NewProfileService(env.deps)

	got, err := svc.UpdateProfile(ctx, id, UpdateProfileRequest{
		Name:    ptr("Anna"),
		Profile: &ProfileUpdate{Grade: ptr("11"), Interests: []string{"math", "art"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.Name)
	assert.Equal(t, "Lee", got.Surname)
	assert.Equal(t, "11", got.Profile.Grade)
	assert.Equal(t, []string{"math", "art"}, got.Profile.Interests)
	assert.Empty(t, got.Profile.Subjects)

	again, err := svc.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, got.Profile, again.Profile)

	t.Run("changing phone clears verification", func(t *testing.T) {
		acc, _ := env.repo.FindByID(ctx, id)
		acc.Phone = "+79001234567"
		acc.IsPhoneVerified = true
		require.NoError(t, env.repo.Save(ctx, acc))

		got, err := svc.UpdateProfile(ctx, id, UpdateProfileRequest{Phone: ptr("+79007654321")})
		require.NoError(t, err)
		assert.False(t, got.IsPhoneVerified)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := svc.GetProfile(ctx, "missing")
		assertKind(t, err, apperrors.KindNotFound)
	})
}

func TestProfileService_TestResultsReplaceByTestID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	svc := NewProfileService(env.deps)

	save := func(testID string, score float64) {
		t.Helper()
		_, err := svc.SaveTestResult(ctx, id, TestResultRequest{
			TestID:   testID,
			TestName: "Test " + testID,
			Score:    ptr(score),
			Answers:  json.RawMessage(`{"q1":"a"}`),
		})
		require.NoError(t, err)
	}

	save("career", 40)
	save("skills", 70)
	save("career", 85)

	results, err := svc.ListTestResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "skills", results[0].TestID)
	assert.Equal(t, "career", results[1].TestID)
	assert.Equal(t, 85.0, results[1].Score)
	assert.JSONEq(t, `{"q1":"a"}`, string(results[1].Answers))
	assert.True(t, results[1].CompletedAt.Equal(env.clock.Now()))
}

func TestProfileService_Recommendations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	svc := NewProfileService(env.deps)

	rec, err := svc.SaveRecommendation(ctx, id, RecommendationRequest{
		Type:        models.RecommendationCollege,
		Title:       "Technical college",
		Description: "Engineering",
		Match:       ptr(92.5),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Saved)
	assert.JSONEq(t, `{}`, string(rec.Details))

	second, err := svc.SaveRecommendation(ctx, id, RecommendationRequest{
		Type: models.RecommendationProfession, Title: "Engineer", Description: "Design", Match: ptr(80.0),
		Details: json.RawMessage(`{"salary":"high"}`),
	})
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, second.ID)

	updated, err := svc.SetRecommendationSaved(ctx, id, rec.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Saved)

	list, err := svc.ListRecommendations(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Saved)
	assert.False(t, list[1].Saved)

	_, err = svc.SetRecommendationSaved(ctx, id, "unknown", true)
	appErr := assertKind(t, err, apperrors.KindNotFound)
	assert.Equal(t, "Recommendation not found", appErr.Message)
}

func TestProfileService_UpdatePreferencesMerges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	svc := NewProfileService(env.deps)

	prefs, err := svc.UpdatePreferences(ctx, id, PreferencesRequest{
		Notifications: &NotificationPreferencesUpdate{SMS: ptr(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPreferences{Email: true, SMS: false, Push: true}, prefs.Notifications)
	assert.Equal(t, models.PrivacyPreferences{}, prefs.Privacy)

	prefs, err = svc.UpdatePreferences(ctx, id, PreferencesRequest{
		Privacy: &PrivacyPreferencesUpdate{ShowProfile: ptr(true)},
	})
	require.NoError(t, err)
	assert.False(t, prefs.Notifications.SMS, "earlier change is kept")
	assert.True(t, prefs.Privacy.ShowProfile)
	assert.False(t, prefs.Privacy.ShareData)
}

func TestProfileService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	student := env.register(t, "Ann", "Lee", "a@x.com", "secret1", models.RoleStudent)
	parent := env.register(t, "Pat", "Lee", "p@x.com", "secret1", models.RoleParent)
	_, err := NewLinkService(env.deps).Link(ctx, student, LinkRequest{StudentEmail: "a@x.com", ParentEmail: "p@x.com"})
	require.NoError(t, err)
	svc := NewProfileService(env.deps)

	err = svc.DeleteAccount(ctx, student, "wrong")
	appErr := assertKind(t, err, apperrors.KindAuthentication)
	assert.Equal(t, "Invalid password", appErr.Message)

	require.NoError(t, svc.DeleteAccount(ctx, student, "secret1"))

	gone, err := env.repo.FindByID(ctx, student)
	require.NoError(t, err)
	assert.Nil(t, gone)

	p, _ := env.repo.FindByID(ctx, parent)
	assert.Empty(t, p.LinkedUsers)

	err = svc.DeleteAccount(ctx, student, "secret1")
	assertKind(t, err, apperrors.KindNotFound)
}
