package permissions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository abstracts circle-permission persistence.
// Implementations: Postgres (production), memory (tests/dev).
type Repository interface {
	Get(ctx context.Context, familyFileID, contactID, childID string) (CirclePermission, bool, error)
	ListByFamily(ctx context.Context, familyFileID, contactID string) ([]CirclePermission, error)
	ListByContact(ctx context.Context, contactID string) ([]CirclePermission, error)
	Upsert(ctx context.Context, p CirclePermission) (CirclePermission, error)
}

var (
	ErrNotFound        = errors.New("permission not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Service provides circle-permission operations.
//
// Contract:
// - Parents author permissions; contacts only read their own.
// - Denial outcomes are Decision values, never errors.
// - Evaluation is never cached; every caller re-evaluates at its own "now".
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// CanCommunicate evaluates the full gate for one (contact, child) pair and a
// requested capability: the pair's window first, then the capability flag.
// A missing permission row denies with the not-active reason; absence of a
// connection is indistinguishable from a disabled one to the contact.
func (s *Service) CanCommunicate(ctx context.Context, familyFileID, contactID, childID string, kind Kind) (Decision, error) {
	if familyFileID == "" || contactID == "" || childID == "" {
		return Decision{}, ErrInvalidArgument
	}

	p, ok, err := s.repo.Get(ctx, familyFileID, contactID, childID)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{Allowed: false, Reason: ReasonNotActive}, nil
	}

	d := Evaluate(p, s.clock())
	if !d.Allowed {
		return d, nil
	}
	if !CapabilityAllowed(p, kind) {
		return Decision{Allowed: false, Reason: "not allowed for " + string(kind)}, nil
	}
	return Decision{Allowed: true}, nil
}

// ListByFamily returns the permissions a parent sees on the family file.
// contactID is an optional filter.
func (s *Service) ListByFamily(ctx context.Context, familyFileID, contactID string) ([]CirclePermission, error) {
	if familyFileID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByFamily(ctx, familyFileID, contactID)
}

// Mine returns the permissions governing the calling contact across children.
func (s *Service) Mine(ctx context.Context, contactID string) ([]CirclePermission, error) {
	if contactID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByContact(ctx, contactID)
}

// Get fetches a single permission row.
func (s *Service) Get(ctx context.Context, familyFileID, contactID, childID string) (CirclePermission, error) {
	if familyFileID == "" || contactID == "" || childID == "" {
		return CirclePermission{}, ErrInvalidArgument
	}
	p, ok, err := s.repo.Get(ctx, familyFileID, contactID, childID)
	if err != nil {
		return CirclePermission{}, err
	}
	if !ok {
		return CirclePermission{}, ErrNotFound
	}
	return p, nil
}

// Upsert creates or replaces the permission for a (contact, child) pair.
// Parent-only; the HTTP layer enforces the role, this validates the shape.
func (s *Service) Upsert(ctx context.Context, p CirclePermission) (CirclePermission, error) {
	if p.FamilyFileID == "" || p.ContactID == "" || p.ChildID == "" {
		return CirclePermission{}, ErrInvalidArgument
	}
	// Window fields are all-or-nothing and must parse.
	if (p.AllowedStartTime == "") != (p.AllowedEndTime == "") {
		return CirclePermission{}, ErrInvalidArgument
	}
	if p.AllowedStartTime != "" {
		if _, err := parseClock(p.AllowedStartTime); err != nil {
			return CirclePermission{}, ErrInvalidArgument
		}
		if _, err := parseClock(p.AllowedEndTime); err != nil {
			return CirclePermission{}, ErrInvalidArgument
		}
	}
	for _, d := range p.AllowedDays {
		if d < time.Sunday || d > time.Saturday {
			return CirclePermission{}, ErrInvalidArgument
		}
	}

	now := s.clock().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return s.repo.Upsert(ctx, p)
}
