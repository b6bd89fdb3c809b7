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

type MessageService struct {
	db          *gorm.DB
	messageRepo *repository.MessageRepository
	followRepo  *repository.FollowRepository
	likeRepo    *repository.LikeRepository
	userRepo    *repository.UserRepository
	producer    queue.Publisher
	logger      *logger.Logger
}

func NewMessageService(
	db *gorm.DB,
	messageRepo *repository.MessageRepository,
	followRepo *repository.FollowRepository,
	likeRepo *repository.LikeRepository,
	userRepo *repository.UserRepository,
	producer queue.Publisher,
	logger *logger.Logger,
) *MessageService {
	return &MessageService{
		db:          db,
		messageRepo: messageRepo,
		followRepo:  followRepo,
		likeRepo:    likeRepo,
		userRepo:    userRepo,
		producer:    producer,
		logger:      logger,
	}
}

type CreateMessageRequest struct {
	Text string `form:"text" json:"text" binding:"required,max=140"`
}

func (s *MessageService) Create(ctx context.Context, userID uint, text string) (*models.Message, error) {
	// 检查用户是否存在
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	message := &models.Message{
		Text:   text,
		UserID: &user.ID,
	}

	session := repository.NewSession(s.db)
	session.Add(message)
	if err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	message.User = user

	publishEvent(ctx, s.producer, s.logger, userKey(userID), queue.EventMessageCreated, queue.MessageEventData{
		MessageID: message.ID,
		UserID:    userID,
	})

	s.logger.WithFields(logrus.Fields{
		"message_id": message.ID,
		"user_id":    userID,
	}).Info("Message created successfully")

	return message, nil
}

func (s *MessageService) Get(ctx context.Context, messageID uint) (*models.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}
	return message, nil
}

// Delete removes a message on behalf of userID, who must be its author.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uint) error {
	message, err := s.Get(ctx, messageID)
	if err != nil {
		return err
	}

	// 检查权限
	if !message.AuthoredBy(userID) {
		return ErrForbidden
	}

	// likes cascade with the message, so their owners' counters change too
	likes, err := s.likeRepo.GetByMessageID(ctx, messageID)
	if err != nil {
		return err
	}
	likerIDs := make([]uint, 0, len(likes))
	for _, like := range likes {
		likerIDs = append(likerIDs, like.UserID)
	}

	session := repository.NewSession(s.db)
	session.Delete(message)
	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	publishEvent(ctx, s.producer, s.logger, userKey(userID), queue.EventMessageDeleted, queue.MessageEventData{
		MessageID: messageID,
		UserID:    userID,
		LikerIDs:  likerIDs,
	})

	s.logger.WithFields(logrus.Fields{
		"message_id": messageID,
		"user_id":    userID,
	}).Info("Message deleted successfully")

	return nil
}

func (s *MessageService) UserMessages(ctx context.Context, userID uint, offset, limit int) ([]*models.Message, error) {
	messages, err := s.messageRepo.GetByUserID(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get user messages: %w", err)
	}
	return messages, nil
}

// HomeTimeline returns the newest messages written by userID or by anyone
// userID follows.
func (s *MessageService) HomeTimeline(ctx context.Context, userID uint, limit int) ([]*models.Message, error) {
	authorIDs, err := s.followRepo.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get following ids: %w", err)
	}
	authorIDs = append(authorIDs, userID)

	messages, err := s.messageRepo.GetByAuthors(ctx, authorIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}
	return messages, nil
}
