// Package memorystorage keeps the credential and link stores in process
// memory. Nothing survives a restart. A single RWMutex guards both maps:
// one writer at a time, readers may be concurrent, since handlers run on
// the HTTP server's goroutines.
package memorystorage

import (
	"context"
	"sync"

	"tinylink/internal/models"
)

// MemoryStorage holds users keyed by ID and links keyed by short code.
type MemoryStorage struct {
	mu    sync.RWMutex
	users map[string]models.User
	links map[string]models.Link
}

// New returns an empty store. Construct one per process (or per test);
// there is no ambient global instance.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users: map[string]models.User{},
		links: map[string]models.Link{},
	}, nil
}

// CreateUser inserts the user record keyed by its ID.
func (theStorage *MemoryStorage) CreateUser(ctx context.Context, usr *models.User) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	theStorage.users[usr.ID] = *usr

	return nil
}

// GetUserByID returns the user with the given ID, if any.
func (theStorage *MemoryStorage) GetUserByID(ctx context.Context, userID string) (*models.User, bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	usr, found := theStorage.users[userID]
	if !found {
		return nil, false, nil
	}

	return &usr, true, nil
}

// FindUserByEmail scans all users and returns the first whose email exactly
// equals the argument. The comparison is case-sensitive.
func (theStorage *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	for _, usr := range theStorage.users {
		if usr.Email == email {
			found := usr
			return &found, true, nil
		}
	}

	return nil, false, nil
}

// InsertLink stores the link keyed by its short code, overwriting any
// previous entry with the same code.
func (theStorage *MemoryStorage) InsertLink(ctx context.Context, link *models.Link) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	theStorage.links[link.Short] = *link

	return nil
}

// FindLinkByShort returns the link for the given short code, if any.
func (theStorage *MemoryStorage) FindLinkByShort(ctx context.Context, short string) (*models.Link, bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	link, found := theStorage.links[short]
	if !found {
		return nil, false, nil
	}

	return &link, true, nil
}

// IsShortExists reports whether a link with the given short code exists.
func (theStorage *MemoryStorage) IsShortExists(ctx context.Context, short string) (bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	_, exists := theStorage.links[short]

	return exists, nil
}

// UpdateLinkURL replaces the long URL of an existing link. The owner is
// never reassigned.
func (theStorage *MemoryStorage) UpdateLinkURL(ctx context.Context, short, longURL string) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	link, found := theStorage.links[short]
	if !found {
		return models.ErrNotFound
	}

	link.LongURL = longURL
	theStorage.links[short] = link

	return nil
}

// DeleteLink removes the link with the given short code.
func (theStorage *MemoryStorage) DeleteLink(ctx context.Context, short string) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if _, found := theStorage.links[short]; !found {
		return models.ErrNotFound
	}

	delete(theStorage.links, short)

	return nil
}

// FindLinksByOwner returns the short-to-long mapping of every link owned by
// the given user. The result is empty, never nil, when the user owns nothing.
func (theStorage *MemoryStorage) FindLinksByOwner(ctx context.Context, ownerID string) (models.OwnedLinks, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	result := models.OwnedLinks{}
	for short, link := range theStorage.links {
		if link.OwnerID == ownerID {
			result[short] = link.LongURL
		}
	}

	return result, nil
}

// GetAllLinks returns a snapshot of the entire link store keyed by short code.
func (theStorage *MemoryStorage) GetAllLinks(ctx context.Context) (map[string]models.Link, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	result := make(map[string]models.Link, len(theStorage.links))
	for short, link := range theStorage.links {
		result[short] = link
	}

	return result, nil
}

// Ping reports storage availability. Memory is always available.
func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close releases storage resources. Memory needs none.
func (theStorage *MemoryStorage) Close() error {
	return nil
}
