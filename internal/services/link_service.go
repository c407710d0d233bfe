package services

import (
	"context"
	"strings"

	"github.com/eduguide/backend/internal/apperrors"
	"github.com/eduguide/backend/internal/audit"
	"github.com/eduguide/backend/internal/models"
	"github.com/eduguide/backend/internal/repositories"
)

// LinkService pairs student and parent accounts and searches the directory.
type LinkService struct {
	Dependencies
}

func NewLinkService(deps Dependencies) *LinkService {
	return &LinkService{Dependencies: deps.withDefaults()}
}

// Link connects a student and a parent. The requester must be one of them.
// Linking an already linked pair succeeds without changes.
func (s *LinkService) Link(ctx context.Context, requesterID string, req LinkRequest) (*LinkResponse, error) {
	student, err := s.findWithRole(ctx, req.StudentEmail, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	parent, err := s.findWithRole(ctx, req.ParentEmail, models.RoleParent)
	if err != nil {
		return nil, err
	}
	if student == nil || parent == nil {
		return nil, apperrors.NotFound("Student or parent not found")
	}
	if requesterID != student.ID && requesterID != parent.ID {
		s.Audit.Failure(audit.EventAccountsLinked, requesterID, map[string]string{"reason": "not_a_party"})
		return nil, apperrors.Authorization("You can only link your own accounts")
	}

	if err := s.Accounts.AddLink(ctx, student.ID, parent.ID); err != nil {
		return nil, storageFailure("link accounts", err)
	}

	s.Audit.Success(audit.EventAccountsLinked, requesterID, map[string]string{
		"student_id": student.ID,
		"parent_id":  parent.ID,
	})
	return &LinkResponse{
		Message: "Users linked successfully",
		Student: student.Linked(),
		Parent:  parent.Linked(),
	}, nil
}

func (s *LinkService) findWithRole(ctx context.Context, email string, role models.Role) (*models.Account, error) {
	acc, err := s.Accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storageFailure("find account by email", err)
	}
	if acc == nil || acc.Role != role {
		return nil, nil
	}
	return acc, nil
}

// ListLinked returns the linked accounts in the order they were linked.
func (s *LinkService) ListLinked(ctx context.Context, userID string) ([]models.LinkedAccount, error) {
	acc, err := loadAccount(ctx, s.Dependencies, userID)
	if err != nil {
		return nil, err
	}
	if len(acc.LinkedUsers) == 0 {
		return []models.LinkedAccount{}, nil
	}

	linked, err := s.Accounts.FindByIDs(ctx, acc.LinkedUsers)
	if err != nil {
		return nil, storageFailure("find linked accounts", err)
	}
	byID := make(map[string]*models.Account, len(linked))
	for _, l := range linked {
		byID[l.ID] = l
	}

	out := make([]models.LinkedAccount, 0, len(linked))
	for _, id := range acc.LinkedUsers {
		if l, ok := byID[id]; ok {
			out = append(out, l.Linked())
		}
	}
	return out, nil
}

// Search finds accounts whose name and surname contain the given values,
// case-insensitively. The requester is never part of the result.
func (s *LinkService) Search(ctx context.Context, requesterID, name, surname, role string) ([]models.LinkedAccount, error) {
	name, surname = strings.TrimSpace(name), strings.TrimSpace(surname)
	if name == "" || surname == "" {
		return nil, apperrors.Validation("Name and surname are required")
	}
	r := models.Role(role)
	if r != "" && r != models.RoleStudent && r != models.RoleParent {
		return nil, apperrors.ValidationFields("Validation failed", map[string]string{
			"role": "Role must be either student or parent",
		})
	}

	found, err := s.Accounts.SearchByName(ctx, repositories.SearchQuery{
		Name:      name,
		Surname:   surname,
		Role:      r,
		ExcludeID: requesterID,
		Limit:     repositories.DefaultSearchLimit,
	})
	if err != nil {
		return nil, storageFailure("search accounts", err)
	}

	out := make([]models.LinkedAccount, 0, len(found))
	for _, a := range found {
		out = append(out, a.Linked())
	}
	return out, nil
}
