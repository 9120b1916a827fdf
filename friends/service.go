package friends

import (
	"fmt"

	"github.com/platemate/server/db"
	"github.com/platemate/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Profile is the shape in which friend and pending-request views expose the
// other party of a relationship.
type Profile struct {
	ID        int64  `json:"id"`
	Handle    string `json:"handle"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Service owns the friendship lifecycle: it is the only writer of
// relationship rows, and derives the friend/pending views from them.
type Service struct {
	db     *gorm.DB
	store  *Store
	logger *zap.Logger
}

// NewService creates a friends Service.
func NewService(gdb *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: gdb, store: NewStore(gdb), logger: logger}
}

// validUser rejects zero-value or unsaved users before they reach the store.
func validUser(u model.User) error {
	if u.ID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrInvalidArgument, u.ID)
	}
	return nil
}

func validPair(a, b model.User) error {
	if err := validUser(a); err != nil {
		return err
	}
	if err := validUser(b); err != nil {
		return err
	}
	if a.ID == b.ID {
		return fmt.Errorf("%w: users must be distinct", ErrInvalidArgument)
	}
	return nil
}

// Request sends a friend request from requester to target: it creates a
// Pending row oriented requester → target. Fails with
// ErrDuplicateRelationship if any row already exists between the pair.
func (s *Service) Request(requester, target model.User) error {
	if err := validPair(requester, target); err != nil {
		return err
	}
	err := db.WithRetry(s.db, func(tx *gorm.DB) error {
		existing, err := s.store.Relationship(tx, requester, target)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: users %d and %d", ErrDuplicateRelationship, requester.ID, target.ID)
		}
		pending, err := s.store.StatusByName(tx, StatusPending)
		if err != nil {
			return err
		}
		return s.store.Create(tx, requester, target, pending)
	})
	if err != nil {
		return err
	}
	s.logger.Info("friend request created",
		zap.Int64("requester_id", requester.ID),
		zap.Int64("target_id", target.ID))
	return nil
}

// Accept moves the pending request between acceptor and requester to
// Friends. Only the target of the original request may accept; the row
// keeps its original orientation so this holds even after retries.
func (s *Service) Accept(acceptor, requester model.User) error {
	if err := validPair(acceptor, requester); err != nil {
		return err
	}
	err := db.WithRetry(s.db, func(tx *gorm.DB) error {
		f, err := s.store.Relationship(tx, acceptor, requester)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("%w: users %d and %d", ErrRelationshipNotFound, acceptor.ID, requester.ID)
		}
		friendsStatus, err := s.store.StatusByName(tx, StatusFriends)
		if err != nil {
			return err
		}
		if f.StatusID == friendsStatus.ID {
			return ErrAlreadyAccepted
		}
		if f.TargetID != acceptor.ID {
			return fmt.Errorf("%w: user %d", ErrNotTheTarget, acceptor.ID)
		}
		return s.store.SetStatus(tx, f, friendsStatus)
	})
	if err != nil {
		return err
	}
	s.logger.Info("friend request accepted",
		zap.Int64("acceptor_id", acceptor.ID),
		zap.Int64("requester_id", requester.ID))
	return nil
}

// Delete removes the relationship between the two users, pending or
// established.
func (s *Service) Delete(a, b model.User) error {
	if err := validPair(a, b); err != nil {
		return err
	}
	err := db.WithRetry(s.db, func(tx *gorm.DB) error {
		f, err := s.store.Relationship(tx, a, b)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("%w: users %d and %d", ErrRelationshipNotFound, a.ID, b.ID)
		}
		return s.store.Delete(tx, f)
	})
	if err != nil {
		return err
	}
	s.logger.Info("friendship deleted",
		zap.Int64("user_a", a.ID),
		zap.Int64("user_b", b.ID))
	return nil
}

// DeleteAllForUser removes every relationship the user appears in. Called by
// the account-deletion pipeline before the user row is purged.
func (s *Service) DeleteAllForUser(u model.User) error {
	if err := validUser(u); err != nil {
		return err
	}
	return db.WithRetry(s.db, func(tx *gorm.DB) error {
		return s.store.DeleteAllForUser(tx, u.ID)
	})
}

// ListFriends returns the other side of every established relationship the
// user appears in. Ordering follows the store's default and is only stable
// in the absence of concurrent writes.
func (s *Service) ListFriends(u model.User) ([]Profile, error) {
	if err := validUser(u); err != nil {
		return nil, err
	}
	rows, err := s.relationshipsWithStatus(u, StatusFriends, DirectionBoth)
	if err != nil {
		return nil, err
	}
	return s.counterparts(u, rows)
}

// FriendIDs returns the ids of the user's established friends, optionally
// including the user's own id. The ratings composition uses the
// own-plus-friends form as its author filter.
func (s *Service) FriendIDs(u model.User, includeSelf bool) ([]int64, error) {
	if err := validUser(u); err != nil {
		return nil, err
	}
	rows, err := s.relationshipsWithStatus(u, StatusFriends, DirectionBoth)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows)+1)
	for _, f := range rows {
		ids = append(ids, f.CounterpartID(u.ID))
	}
	if includeSelf {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// PendingRequests returns the other party of each pending request involving
// the user, filtered by direction: inbound (user is target), outbound (user
// is requester), or both.
func (s *Service) PendingRequests(u model.User, dir Direction) ([]Profile, error) {
	if err := validUser(u); err != nil {
		return nil, err
	}
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidArgument, dir)
	}
	rows, err := s.relationshipsWithStatus(u, StatusPending, dir)
	if err != nil {
		return nil, err
	}
	return s.counterparts(u, rows)
}

// relationshipsWithStatus fetches the user's relationship rows in the given
// status, restricted to the given direction.
func (s *Service) relationshipsWithStatus(u model.User, status Status, dir Direction) ([]model.Friendship, error) {
	var rows []model.Friendship
	err := db.WithRetry(s.db, func(tx *gorm.DB) error {
		statusRow, err := s.store.StatusByName(tx, status)
		if err != nil {
			return err
		}
		q := tx.Where("status_id = ?", statusRow.ID)
		switch dir {
		case DirectionInbound:
			q = q.Where("target_id = ?", u.ID)
		case DirectionOutbound:
			q = q.Where("requester_id = ?", u.ID)
		default:
			q = q.Where("requester_id = ? OR target_id = ?", u.ID, u.ID)
		}
		return q.Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// counterparts resolves the non-u side of each row to a user profile,
// preserving row order.
func (s *Service) counterparts(u model.User, rows []model.Friendship) ([]Profile, error) {
	profiles := make([]Profile, 0, len(rows))
	if len(rows) == 0 {
		return profiles, nil
	}
	ids := make([]int64, len(rows))
	for i, f := range rows {
		ids[i] = f.CounterpartID(u.ID)
	}
	var users []model.User
	err := db.WithRetry(s.db, func(tx *gorm.DB) error {
		return tx.Where("id IN ?", ids).Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.User, len(users))
	for _, usr := range users {
		byID[usr.ID] = usr
	}
	for _, id := range ids {
		usr, ok := byID[id]
		if !ok {
			// Counterpart row already purged; skip rather than fail the view.
			continue
		}
		profiles = append(profiles, Profile{
			ID:        usr.ID,
			Handle:    usr.Handle,
			Email:     usr.Email,
			FirstName: usr.FirstName,
			LastName:  usr.LastName,
		})
	}
	return profiles, nil
}
