// Package service implements the business rules of the shortener:
// registration and login over the credential store, link creation with
// collision-retried code generation, and the ownership checks that guard
// every per-link mutation.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tinylink/internal/models"
)

// TriesToGenerateUniqueKey bounds the collision-retry loop of ShortenURL.
const TriesToGenerateUniqueKey = 10

// PasswordHashCost is the bcrypt cost factor used for stored password hashes.
const PasswordHashCost = 10

type userKeeper interface {
	CreateUser(ctx context.Context, usr *models.User) error

	GetUserByID(ctx context.Context, userID string) (*models.User, bool, error)

	FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
}

type linksKeeper interface {
	InsertLink(ctx context.Context, link *models.Link) error

	FindLinkByShort(ctx context.Context, short string) (*models.Link, bool, error)

	IsShortExists(ctx context.Context, short string) (bool, error)

	UpdateLinkURL(ctx context.Context, short, longURL string) error

	DeleteLink(ctx context.Context, short string) error

	FindLinksByOwner(ctx context.Context, ownerID string) (models.OwnedLinks, error)

	GetAllLinks(ctx context.Context) (map[string]models.Link, error)
}

type storage interface {
	userKeeper
	linksKeeper
}

// Service composes the stores with the short-code generator.
type Service struct {
	db          storage
	generateKey func() string
}

// New creates a Service over the given storage. generateKey produces
// candidate short codes; it is injected so tests can force collisions.
func New(db storage, generateKey func() string) *Service {
	return &Service{
		db:          db,
		generateKey: generateKey,
	}
}

// RegisterUser creates an account for the given credentials.
// It returns models.ErrValidation when either field is empty and
// models.ErrDuplicateEmail when the email already has an account;
// the existing account is never overwritten.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, models.ErrValidation
	}

	_, found, err := s.db.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, models.ErrDuplicateEmail
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return nil, err
	}

	usr := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(passwordHash),
	}
	if err := s.db.CreateUser(ctx, usr); err != nil {
		return nil, err
	}

	return usr, nil
}

// AuthenticateUser verifies the credentials and returns the matching user.
// Unknown emails and wrong passwords are indistinguishable to the caller:
// both yield models.ErrAuthenticationFailed.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, models.ErrValidation
	}

	usr, found, err := s.db.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrAuthenticationFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, models.ErrAuthenticationFailed
		}
		return nil, err
	}

	return usr, nil
}

func (s *Service) generateUnusedKey(ctx context.Context) (string, error) {
	for i := 0; i < TriesToGenerateUniqueKey; i++ {
		short := s.generateKey()
		exists, err := s.db.IsShortExists(ctx, short)
		if err != nil {
			return "", err
		}
		if !exists {
			return short, nil
		}
	}

	return "", models.ErrShortKeysExhausted
}

// ShortenURL creates a link owned by ownerID and returns its short code.
// Generated codes are retried against the store until an unused one is
// found, so an existing link is never silently overwritten.
func (s *Service) ShortenURL(ctx context.Context, longURL, ownerID string) (string, error) {
	if longURL == "" {
		return "", models.ErrValidation
	}

	short, err := s.generateUnusedKey(ctx)
	if err != nil {
		return "", err
	}

	err = s.db.InsertLink(ctx, &models.Link{
		Short:   short,
		LongURL: longURL,
		OwnerID: ownerID,
	})
	if err != nil {
		return "", err
	}

	return short, nil
}

// GetOwnedLink returns the link for short after checking that callerID owns
// it. It returns models.ErrNotFound for unknown codes and
// models.ErrForbidden for foreign ones.
func (s *Service) GetOwnedLink(ctx context.Context, short, callerID string) (*models.Link, error) {
	link, found, err := s.db.FindLinkByShort(ctx, short)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrNotFound
	}
	if link.OwnerID != callerID {
		return nil, models.ErrForbidden
	}

	return link, nil
}

// UpdateLink replaces the long URL of an owned link. The store is never
// mutated when the ownership check fails.
func (s *Service) UpdateLink(ctx context.Context, short, newLongURL, callerID string) error {
	if newLongURL == "" {
		return models.ErrValidation
	}

	if _, err := s.GetOwnedLink(ctx, short, callerID); err != nil {
		return err
	}

	return s.db.UpdateLinkURL(ctx, short, newLongURL)
}

// DeleteLink removes an owned link, with the same ownership discipline as
// UpdateLink.
func (s *Service) DeleteLink(ctx context.Context, short, callerID string) error {
	if _, err := s.GetOwnedLink(ctx, short, callerID); err != nil {
		return err
	}

	return s.db.DeleteLink(ctx, short)
}

// UserByID returns the account record behind a resolved session identity.
func (s *Service) UserByID(ctx context.Context, userID string) (*models.User, bool, error) {
	return s.db.GetUserByID(ctx, userID)
}

// UserLinks returns the short-to-long mapping of every link userID owns.
func (s *Service) UserLinks(ctx context.Context, userID string) (models.OwnedLinks, error) {
	return s.db.FindLinksByOwner(ctx, userID)
}

// ResolveShort returns the long URL behind a short code for the public
// redirect. No authentication applies here.
func (s *Service) ResolveShort(ctx context.Context, short string) (string, error) {
	link, found, err := s.db.FindLinkByShort(ctx, short)
	if err != nil {
		return "", err
	}
	if !found {
		return "", models.ErrNotFound
	}

	return link.LongURL, nil
}

// DumpLinks returns the whole link store for the urls.json debug endpoint.
func (s *Service) DumpLinks(ctx context.Context) (map[string]models.Link, error) {
	return s.db.GetAllLinks(ctx)
}
