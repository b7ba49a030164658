// Package policy decides whether a requester may read a scrapbook or post.
//
// The rules are the core of the access model: a target is readable when it
// is public, when the requester is its author, or when the requester holds
// a shared-access grant for the scrapbook. Grants are checked at the
// scrapbook level for posts too — the sharing workflow always writes
// per-post grants alongside the scrapbook grant, so the two predicates
// agree on every state the workflow can produce.
package policy

import "github.com/ferntrail/scrapbook/internal/models"

// GrantSource answers whether a user holds a grant for a scrapbook.
// *db.Repository satisfies it.
type GrantSource interface {
	HasScrapbookGrant(userID, scrapbookID models.UUID) (bool, error)
}

// Decision is the outcome of a visibility check.
type Decision struct {
	Allowed bool
	// LoginRequired distinguishes the anonymous deny (redirect to login)
	// from the authenticated deny (forbidden).
	LoginRequired bool
	// Message is the human-readable denial reason shown on forbidden.
	Message string
}

// Allow is the decision granting access.
var Allow = Decision{Allowed: true}

func deny(requester *models.User, message string) Decision {
	return Decision{
		Allowed:       false,
		LoginRequired: requester == nil,
		Message:       message,
	}
}

// CanViewScrapbook decides read access to a scrapbook. requester is nil for
// anonymous visitors.
func CanViewScrapbook(requester *models.User, s *models.Scrapbook, grants GrantSource) (Decision, error) {
	if s.Status == models.StatusPublic {
		return Allow, nil
	}
	if requester != nil {
		if requester.ID == s.AuthorID {
			return Allow, nil
		}
		shared, err := grants.HasScrapbookGrant(requester.ID, s.ID)
		if err != nil {
			return Decision{}, err
		}
		if shared {
			return Allow, nil
		}
	}
	return deny(requester, "You do not have permission to view this scrapbook."), nil
}

// CanViewPost decides read access to a post. A scrapbook-level grant covers
// every post within it.
func CanViewPost(requester *models.User, p *models.Post, grants GrantSource) (Decision, error) {
	if p.Status == models.StatusPublic {
		return Allow, nil
	}
	if requester != nil {
		if requester.ID == p.AuthorID {
			return Allow, nil
		}
		shared, err := grants.HasScrapbookGrant(requester.ID, p.ScrapbookID)
		if err != nil {
			return Decision{}, err
		}
		if shared {
			return Allow, nil
		}
	}
	return deny(requester, "You do not have permission to view this post."), nil
}

// CanContribute decides whether a requester may create posts in a
// scrapbook: its author always can, and so can users the scrapbook has
// been shared with.
func CanContribute(requester *models.User, s *models.Scrapbook, grants GrantSource) (bool, error) {
	if requester == nil {
		return false, nil
	}
	if requester.ID == s.AuthorID {
		return true, nil
	}
	return grants.HasScrapbookGrant(requester.ID, s.ID)
}
