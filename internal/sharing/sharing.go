// Package sharing orchestrates granting read access to a scrapbook.
package sharing

import (
	"github.com/ferntrail/scrapbook/internal/db"
	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/logging"
	"github.com/ferntrail/scrapbook/internal/models"
)

// Service runs the sharing workflow over the repository.
type Service struct {
	repo *db.Repository
}

// NewService creates a sharing Service.
func NewService(repo *db.Repository) *Service {
	return &Service{repo: repo}
}

// Share grants grantee read access to the scrapbook and, transitively, to
// every post currently in it. The grant set is written atomically; posts
// added later are not covered unless the scrapbook is re-shared.
//
// Fails with a validation error when grantee equals grantor, and with
// DuplicateGrant when a scrapbook-level grant already exists. The
// duplicate pre-check is best effort; the store's unique index decides
// concurrent races and maps to the same error.
func (s *Service) Share(scrapbookID, grantorID, granteeID models.UUID) error {
	sb, err := s.repo.GetScrapbook(scrapbookID)
	if err != nil {
		return err
	}
	grantee, err := s.repo.GetUser(granteeID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return apperrors.New(apperrors.ErrValidation, "selected recipient does not exist")
		}
		return err
	}
	if granteeID == grantorID {
		return apperrors.New(apperrors.ErrValidation, "a scrapbook cannot be shared with its grantor")
	}

	exists, err := s.repo.CountScrapbookGrants(granteeID, scrapbookID)
	if err != nil {
		return err
	}
	if exists > 0 {
		return apperrors.New(apperrors.ErrDuplicateGrant,
			"scrapbook already shared with this user")
	}

	if err := s.repo.CreateShareGrants(scrapbookID, granteeID, grantorID); err != nil {
		return err
	}

	logging.Info("scrapbook shared", map[string]interface{}{
		"scrapbook": sb.Slug,
		"grantee":   grantee.Username,
		"shared_by": grantorID.String(),
	})
	return nil
}

// Recipients returns the users a grantor may share with: everyone except
// the grantor. Excluding the grantor here is what enforces the
// no-self-share rule at the selection level.
func (s *Service) Recipients(grantorID models.UUID) ([]*models.User, error) {
	return s.repo.ListUsersExcept(grantorID)
}
