package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/warbler/warbler/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type stagedOp func(tx *gorm.DB) error

// Session is a unit of work. Changes are staged in memory and written by
// Commit inside a single transaction, so a commit either applies everything
// that was staged or nothing. A Session belongs to one request (or one test)
// and is not safe for concurrent use.
type Session struct {
	db     *gorm.DB
	staged []stagedOp
}

func NewSession(db *gorm.DB) *Session {
	return &Session{db: db}
}

// Add stages inserts. Associations already attached to the value (for
// example a user's Messages) are inserted with it.
func (s *Session) Add(values ...interface{}) {
	for _, value := range values {
		value := value
		s.staged = append(s.staged, func(tx *gorm.DB) error {
			return tx.Create(value).Error
		})
	}
}

// Save stages an update of every column of an already persisted row. If the
// row is gone by commit time the commit fails with ErrNotFound; the row is
// never re-inserted.
func (s *Session) Save(value interface{}) {
	s.staged = append(s.staged, func(tx *gorm.DB) error {
		result := tx.Model(value).Omit(clause.Associations).Select("*").Updates(value)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete stages removal of a persisted row. Dependent rows follow the
// foreign-key rules of the schema: a deleted user's messages keep existing
// with a null author, follows and likes are removed.
func (s *Session) Delete(value interface{}) {
	s.staged = append(s.staged, func(tx *gorm.DB) error {
		return tx.Delete(value).Error
	})
}

// Follow stages the edge "follower follows followed". IDs are read at commit
// time, so both users may be staged earlier in the same session.
func (s *Session) Follow(follower, followed *models.User) {
	s.staged = append(s.staged, func(tx *gorm.DB) error {
		return tx.Create(&models.Follow{
			UserBeingFollowedID: followed.ID,
			UserFollowingID:     follower.ID,
		}).Error
	})
}

func (s *Session) Unfollow(follower, followed *models.User) {
	s.staged = append(s.staged, func(tx *gorm.DB) error {
		return tx.
			Where("user_being_followed_id = ? AND user_following_id = ?", followed.ID, follower.ID).
			Delete(&models.Follow{}).Error
	})
}

func (s *Session) Like(user *models.User, messageID uint) {
	s.staged = append(s.staged, func(tx *gorm.DB) error {
		return tx.Create(&models.Like{UserID: user.ID, MessageID: messageID}).Error
	})
}

func (s *Session) Unlike(user *models.User, messageID uint) {
	s.staged = append(s.staged, func(tx *gorm.DB) error {
		return tx.
			Where("user_id = ? AND message_id = ?", user.ID, messageID).
			Delete(&models.Like{}).Error
	})
}

// Pending returns the number of staged changes.
func (s *Session) Pending() int {
	return len(s.staged)
}

// Rollback discards everything staged since the last commit.
func (s *Session) Rollback() {
	s.staged = nil
}

// Commit writes the staged changes in order. The buffer is cleared whether or
// not the commit succeeds. Constraint failures satisfy errors.Is(err,
// ErrIntegrity).
func (s *Session) Commit(ctx context.Context) error {
	ops := s.staged
	s.staged = nil
	if len(ops) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		if IsIntegrityViolation(err) {
			return fmt.Errorf("%w: %w", ErrIntegrity, err)
		}
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}
