package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
	"gorm.io/gorm"
)

type LikeService struct {
	db          *gorm.DB
	messageRepo *repository.MessageRepository
	likeRepo    *repository.LikeRepository
	userRepo    *repository.UserRepository
	producer    queue.Publisher
	logger      *logger.Logger
}

func NewLikeService(
	db *gorm.DB,
	messageRepo *repository.MessageRepository,
	likeRepo *repository.LikeRepository,
	userRepo *repository.UserRepository,
	producer queue.Publisher,
	logger *logger.Logger,
) *LikeService {
	return &LikeService{
		db:          db,
		messageRepo: messageRepo,
		likeRepo:    likeRepo,
		userRepo:    userRepo,
		producer:    producer,
		logger:      logger,
	}
}

// ToggleLike likes the message if userID has not liked it yet and unlikes
// it otherwise. It reports whether the message is liked afterwards.
func (s *LikeService) ToggleLike(ctx context.Context, userID, messageID uint) (bool, error) {
	// 检查用户是否存在
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, ErrUserNotFound
	}

	// 检查消息是否存在
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to get message: %w", err)
	}
	if message == nil {
		return false, ErrMessageNotFound
	}

	liked, err := s.likeRepo.IsLiked(ctx, userID, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to check like status: %w", err)
	}

	session := repository.NewSession(s.db)
	eventType := queue.EventLikeCreated
	if liked {
		session.Unlike(user, messageID)
		eventType = queue.EventLikeDeleted
	} else {
		session.Like(user, messageID)
	}
	if err := session.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}

	publishEvent(ctx, s.producer, s.logger, userKey(userID), eventType, queue.LikeEventData{
		UserID:    userID,
		MessageID: messageID,
	})

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"message_id": messageID,
		"liked":      !liked,
	}).Info("Like toggled")

	return !liked, nil
}

func (s *LikeService) LikedMessages(ctx context.Context, userID uint, offset, limit int) ([]*models.Message, error) {
	messages, err := s.likeRepo.GetLikedMessages(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get liked messages: %w", err)
	}
	return messages, nil
}

// LikedMessageIDs returns the ids of every message userID has liked, for
// marking like buttons.
func (s *LikeService) LikedMessageIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	ids, err := s.likeRepo.GetLikedMessageIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get liked message ids: %w", err)
	}
	liked := make(map[uint]bool, len(ids))
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
