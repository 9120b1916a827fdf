package friends

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platemate/server/model"
	"gorm.io/gorm"
)

// Store is the relationship accessor: thin queries and mutations over the
// friendship and status tables. Invariant checks live in Service; Store
// trusts its callers.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Relationship looks up the row between two users, order-independent.
// Returns nil without error when no row exists.
func (s *Store) Relationship(tx *gorm.DB, a, b model.User) (*model.Friendship, error) {
	if tx == nil {
		tx = s.db
	}
	var f model.Friendship
	err := tx.Where("pair_key = ?", model.PairKeyFor(a.ID, b.ID)).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// StatusByName resolves a seeded status row by its canonical description.
func (s *Store) StatusByName(tx *gorm.DB, status Status) (*model.FriendStatus, error) {
	if tx == nil {
		tx = s.db
	}
	var row model.FriendStatus
	err := tx.Where("description = ?", string(status)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatus, status)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a new relationship row. The unique index on the normalized
// pair turns a racing duplicate insert into a conflict error, which is
// reported as ErrDuplicateRelationship.
func (s *Store) Create(tx *gorm.DB, requester, target model.User, status *model.FriendStatus) error {
	f := &model.Friendship{
		RequesterID: requester.ID,
		TargetID:    target.ID,
		PairKey:     model.PairKeyFor(requester.ID, target.ID),
		StatusID:    status.ID,
	}
	if err := tx.Create(f).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: users %d and %d", ErrDuplicateRelationship, requester.ID, target.ID)
		}
		return err
	}
	return nil
}

// SetStatus moves the relationship to the given status and refreshes its
// update time.
func (s *Store) SetStatus(tx *gorm.DB, f *model.Friendship, status *model.FriendStatus) error {
	return tx.Model(f).Updates(map[string]interface{}{
		"status_id":  status.ID,
		"updated_at": time.Now(),
	}).Error
}

// Delete removes the relationship row entirely, whatever its status.
func (s *Store) Delete(tx *gorm.DB, f *model.Friendship) error {
	return tx.Delete(f).Error
}

// DeleteAllForUser removes every relationship row involving the user, in
// either role. Invoked by the account-deletion pipeline before the user row
// itself is purged.
func (s *Store) DeleteAllForUser(tx *gorm.DB, userID int64) error {
	if tx == nil {
		tx = s.db
	}
	return tx.Where("requester_id = ? OR target_id = ?", userID, userID).
		Delete(&model.Friendship{}).Error
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
