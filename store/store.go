package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/cartsync/internal/profile"
)

// Store provides typed access to the backing store. Every list call
// sanitizes joined relations before decoding, so callers only ever see a
// resolved relation or nil.
type Store struct {
	profile *profile.Profile
	driver  Driver

	newID func() string
	now   func() time.Time
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}
