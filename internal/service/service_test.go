package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tinylink/internal/keygen"
	"tinylink/internal/memorystorage"
	"tinylink/internal/models"
)

func newTestService(t *testing.T) (*Service, *memorystorage.MemoryStorage) {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	return New(db, keygen.Generate), db
}

func TestRegisterUser(t *testing.T) {
	s, _ := newTestService(t)

	t.Run("positive", func(t *testing.T) {
		usr, err := s.RegisterUser(context.Background(), "user@example.com", "pw")
		require.NoError(t, err)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "user@example.com", usr.Email)

		assert.NotEqual(t, "pw", usr.PasswordHash, "the password should never be stored in plaintext")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte("pw")))
	})

	t.Run("empty fields", func(t *testing.T) {
		_, err := s.RegisterUser(context.Background(), "", "pw")
		assert.ErrorIs(t, err, models.ErrValidation)

		_, err = s.RegisterUser(context.Background(), "user2@example.com", "")
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("duplicate email keeps the first account", func(t *testing.T) {
		first, err := s.AuthenticateUser(context.Background(), "user@example.com", "pw")
		require.NoError(t, err)

		_, err = s.RegisterUser(context.Background(), "user@example.com", "other-pw")
		assert.ErrorIs(t, err, models.ErrDuplicateEmail)

		again, err := s.AuthenticateUser(context.Background(), "user@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})
}

func TestAuthenticateUser(t *testing.T) {
	s, _ := newTestService(t)

	registered, err := s.RegisterUser(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)

	t.Run("register then login resolves the same user", func(t *testing.T) {
		usr, err := s.AuthenticateUser(context.Background(), "user@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, usr.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := s.AuthenticateUser(context.Background(), "nobody@example.com", "pw")
		assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
	})

	t.Run("email comparison is case-sensitive", func(t *testing.T) {
		_, err := s.AuthenticateUser(context.Background(), "User@Example.com", "pw")
		assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.AuthenticateUser(context.Background(), "user@example.com", "wrong")
		assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
	})

	t.Run("empty fields", func(t *testing.T) {
		_, err := s.AuthenticateUser(context.Background(), "user@example.com", "")
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestShortenURL(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		s, db := newTestService(t)

		short, err := s.ShortenURL(context.Background(), "http://example.com", "user-1")
		require.NoError(t, err)
		assert.Len(t, short, keygen.KeyLength)

		link, found, err := db.FindLinkByShort(context.Background(), short)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "http://example.com", link.LongURL)
		assert.Equal(t, "user-1", link.OwnerID)
	})

	t.Run("empty URL", func(t *testing.T) {
		s, _ := newTestService(t)

		_, err := s.ShortenURL(context.Background(), "", "user-1")
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("retries on collision instead of overwriting", func(t *testing.T) {
		db, err := memorystorage.New()
		require.NoError(t, err)

		// A generator that repeats an occupied key a few times before
		// producing a fresh one.
		keys := []string{"taken1", "taken1", "taken1", "fresh1"}
		s := New(db, func() string {
			key := keys[0]
			if len(keys) > 1 {
				keys = keys[1:]
			}
			return key
		})

		require.NoError(t, db.InsertLink(context.Background(), &models.Link{
			Short:   "taken1",
			LongURL: "http://already.example.com",
			OwnerID: "user-1",
		}))

		short, err := s.ShortenURL(context.Background(), "http://example.com", "user-2")
		require.NoError(t, err)
		assert.Equal(t, "fresh1", short)

		link, found, err := db.FindLinkByShort(context.Background(), "taken1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "http://already.example.com", link.LongURL, "the existing link should not be overwritten")
	})

	t.Run("fails closed when every try collides", func(t *testing.T) {
		db, err := memorystorage.New()
		require.NoError(t, err)

		s := New(db, func() string { return "taken1" })

		require.NoError(t, db.InsertLink(context.Background(), &models.Link{
			Short:   "taken1",
			LongURL: "http://already.example.com",
			OwnerID: "user-1",
		}))

		_, err = s.ShortenURL(context.Background(), "http://example.com", "user-2")
		assert.ErrorIs(t, err, models.ErrShortKeysExhausted)
	})
}

func TestOwnershipChecks(t *testing.T) {
	s, db := newTestService(t)

	short, err := s.ShortenURL(context.Background(), "http://example.com", "owner")
	require.NoError(t, err)

	t.Run("GetOwnedLink", func(t *testing.T) {
		link, err := s.GetOwnedLink(context.Background(), short, "owner")
		require.NoError(t, err)
		assert.Equal(t, "http://example.com", link.LongURL)

		_, err = s.GetOwnedLink(context.Background(), short, "intruder")
		assert.ErrorIs(t, err, models.ErrForbidden)

		_, err = s.GetOwnedLink(context.Background(), "zzzzzz", "owner")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("UpdateLink by a non-owner never mutates", func(t *testing.T) {
		err := s.UpdateLink(context.Background(), short, "http://evil.example.com", "intruder")
		assert.ErrorIs(t, err, models.ErrForbidden)

		link, found, err := db.FindLinkByShort(context.Background(), short)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "http://example.com", link.LongURL)
	})

	t.Run("UpdateLink by the owner", func(t *testing.T) {
		err := s.UpdateLink(context.Background(), short, "http://example.org", "owner")
		require.NoError(t, err)

		link, err := s.GetOwnedLink(context.Background(), short, "owner")
		require.NoError(t, err)
		assert.Equal(t, "http://example.org", link.LongURL)
		assert.Equal(t, "owner", link.OwnerID, "the owner is never reassigned")
	})

	t.Run("DeleteLink by a non-owner never mutates", func(t *testing.T) {
		err := s.DeleteLink(context.Background(), short, "intruder")
		assert.ErrorIs(t, err, models.ErrForbidden)

		exists, err := db.IsShortExists(context.Background(), short)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("DeleteLink by the owner", func(t *testing.T) {
		err := s.DeleteLink(context.Background(), short, "owner")
		require.NoError(t, err)

		_, err = s.ResolveShort(context.Background(), short)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestUserLinks(t *testing.T) {
	s, _ := newTestService(t)

	first, err := s.ShortenURL(context.Background(), "http://first.example.com", "owner")
	require.NoError(t, err)
	second, err := s.ShortenURL(context.Background(), "http://second.example.com", "owner")
	require.NoError(t, err)
	_, err = s.ShortenURL(context.Background(), "http://foreign.example.com", "someone-else")
	require.NoError(t, err)

	owned, err := s.UserLinks(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(
		t,
		models.OwnedLinks{
			first:  "http://first.example.com",
			second: "http://second.example.com",
		},
		owned,
	)

	owned, err = s.UserLinks(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestResolveShort(t *testing.T) {
	s, _ := newTestService(t)

	short, err := s.ShortenURL(context.Background(), "http://example.com", "owner")
	require.NoError(t, err)

	full, err := s.ResolveShort(context.Background(), short)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", full)

	_, err = s.ResolveShort(context.Background(), "zzzzzz")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestScenario(t *testing.T) {
	s, db := newTestService(t)

	usr, err := s.RegisterUser(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)

	loggedIn, err := s.AuthenticateUser(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, usr.ID, loggedIn.ID)

	short, err := s.ShortenURL(context.Background(), "http://example.com", loggedIn.ID)
	require.NoError(t, err)
	assert.Len(t, short, 6)

	owned, err := s.UserLinks(context.Background(), loggedIn.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", owned[short])

	require.NoError(t, s.DeleteLink(context.Background(), short, loggedIn.ID))

	// Re-create a link under the same code and make sure a different caller
	// still cannot delete it.
	require.NoError(t, db.InsertLink(context.Background(), &models.Link{
		Short:   short,
		LongURL: "http://example.com",
		OwnerID: loggedIn.ID,
	}))

	other, err := s.RegisterUser(context.Background(), "other@example.com", "pw")
	require.NoError(t, err)

	err = s.DeleteLink(context.Background(), short, other.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}
