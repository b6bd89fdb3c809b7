package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db          *gorm.DB
	userRepo    *repository.UserRepository
	followRepo  *repository.FollowRepository
	messageRepo *repository.MessageRepository
	likeRepo    *repository.LikeRepository
	stats       *StatsCache
	producer    queue.Publisher
	logger      *logger.Logger
}

func NewUserService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	followRepo *repository.FollowRepository,
	messageRepo *repository.MessageRepository,
	likeRepo *repository.LikeRepository,
	stats *StatsCache,
	producer queue.Publisher,
	logger *logger.Logger,
) *UserService {
	return &UserService{
		db:          db,
		userRepo:    userRepo,
		followRepo:  followRepo,
		messageRepo: messageRepo,
		likeRepo:    likeRepo,
		stats:       stats,
		producer:    producer,
		logger:      logger,
	}
}

type SignupRequest struct {
	Username string `form:"username" json:"username" binding:"required,max=64"`
	Email    string `form:"email" json:"email" binding:"required,email,max=254"`
	Password string `form:"password" json:"password" binding:"required,min=6"`
	ImageURL string `form:"image_url" json:"image_url"`
}

type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// UpdateProfileRequest changes only the fields that are non-empty. Password
// must be the user's current password.
type UpdateProfileRequest struct {
	Username       string `form:"username" json:"username" binding:"max=64"`
	Email          string `form:"email" json:"email" binding:"omitempty,email,max=254"`
	ImageURL       string `form:"image_url" json:"image_url"`
	HeaderImageURL string `form:"header_image_url" json:"header_image_url"`
	Bio            string `form:"bio" json:"bio" binding:"max=500"`
	Location       string `form:"location" json:"location" binding:"max=100"`
	Password       string `form:"password" json:"password" binding:"required"`
}

type Profile struct {
	User  *models.User `json:"user"`
	Stats *Stats       `json:"stats"`
}

// Signup hashes password and stages a new user in session. Nothing is
// written until the caller commits; a taken username or email surfaces then
// as repository.ErrIntegrity.
func (s *UserService) Signup(session *repository.Session, username, email, password, imageURL string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if imageURL == "" {
		imageURL = models.DefaultImageURL
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		ImageURL: imageURL,
	}
	session.Add(user)
	return user, nil
}

// Register is Signup followed by a commit of its own session.
func (s *UserService) Register(ctx context.Context, req *SignupRequest) (*models.User, error) {
	session := repository.NewSession(s.db)
	user, err := s.Signup(session, req.Username, req.Email, req.Password, req.ImageURL)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	publishEvent(ctx, s.producer, s.logger, userKey(user.ID), queue.EventUserCreated, queue.UserEventData{
		UserID:   user.ID,
		Username: user.Username,
	})

	s.logger.WithField("user_id", user.ID).Info("User registered successfully")
	return user, nil
}

// Authenticate returns the user whose username and password match. An
// unknown username and a wrong password both give (nil, nil); an error
// means the lookup itself failed.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// IsFollowing reports whether user follows other.
func (s *UserService) IsFollowing(ctx context.Context, user, other *models.User) (bool, error) {
	return s.followRepo.IsFollowing(ctx, user.ID, other.ID)
}

// IsFollowedBy reports whether other follows user.
func (s *UserService) IsFollowedBy(ctx context.Context, user, other *models.User) (bool, error) {
	return s.followRepo.IsFollowing(ctx, other.ID, user.ID)
}

func (s *UserService) Follow(ctx context.Context, followerID, followedID uint) error {
	if followerID == followedID {
		return ErrCannotFollowSelf
	}

	// 检查用户是否存在
	follower, err := s.GetByID(ctx, followerID)
	if err != nil {
		return err
	}
	followed, err := s.GetByID(ctx, followedID)
	if err != nil {
		return err
	}

	// 检查是否已经关注
	already, err := s.followRepo.IsFollowing(ctx, followerID, followedID)
	if err != nil {
		return fmt.Errorf("failed to check follow status: %w", err)
	}
	if already {
		return ErrAlreadyFollowing
	}

	session := repository.NewSession(s.db)
	session.Follow(follower, followed)
	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}

	publishEvent(ctx, s.producer, s.logger, userKey(followerID), queue.EventFollowCreated, queue.FollowEventData{
		FollowerID: followerID,
		FollowedID: followedID,
	})

	s.logger.WithFields(logrus.Fields{
		"follower_id": followerID,
		"followed_id": followedID,
	}).Info("User followed successfully")

	return nil
}

func (s *UserService) Unfollow(ctx context.Context, followerID, followedID uint) error {
	follower, err := s.GetByID(ctx, followerID)
	if err != nil {
		return err
	}
	followed, err := s.GetByID(ctx, followedID)
	if err != nil {
		return err
	}

	// 检查关注关系是否存在
	following, err := s.followRepo.IsFollowing(ctx, followerID, followedID)
	if err != nil {
		return fmt.Errorf("failed to check follow status: %w", err)
	}
	if !following {
		return ErrNotFollowing
	}

	session := repository.NewSession(s.db)
	session.Unfollow(follower, followed)
	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	publishEvent(ctx, s.producer, s.logger, userKey(followerID), queue.EventFollowDeleted, queue.FollowEventData{
		FollowerID: followerID,
		FollowedID: followedID,
	})

	s.logger.WithFields(logrus.Fields{
		"follower_id": followerID,
		"followed_id": followedID,
	}).Info("User unfollowed successfully")

	return nil
}

// Following lists the users userID follows.
func (s *UserService) Following(ctx context.Context, userID uint, offset, limit int) ([]*models.User, error) {
	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	following, err := s.followRepo.GetFollowing(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return following, nil
}

// FollowingIDs returns the set of users userID follows, for marking follow
// buttons.
func (s *UserService) FollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	ids, err := s.followRepo.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get following ids: %w", err)
	}
	following := make(map[uint]bool, len(ids))
	for _, id := range ids {
		following[id] = true
	}
	return following, nil
}

// Followers lists the users following userID.
func (s *UserService) Followers(ctx context.Context, userID uint, offset, limit int) ([]*models.User, error) {
	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	followers, err := s.followRepo.GetFollowers(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return followers, nil
}

// Profile returns the user and their counters, reading through the stats
// cache. Cache failures only cost a recount.
func (s *UserService) Profile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, hit, err := s.stats.Get(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Stats cache read failed")
	}
	if hit {
		return &Profile{User: user, Stats: stats}, nil
	}

	// 计数前先取代数，计数期间发生失效则不回写
	gen, genErr := s.stats.Generation(ctx, userID)
	if genErr != nil {
		s.logger.WithError(genErr).WithField("user_id", userID).Warn("Stats cache read failed")
	}

	stats, err = s.countStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		if _, err := s.stats.SetIfCurrent(ctx, userID, stats, gen); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Stats cache write failed")
		}
	}

	return &Profile{User: user, Stats: stats}, nil
}

func (s *UserService) countStats(ctx context.Context, userID uint) (*Stats, error) {
	var stats Stats
	var err error

	if stats.Messages, err = s.messageRepo.CountByUserID(ctx, userID); err != nil {
		return nil, err
	}
	if stats.Following, err = s.followRepo.CountFollowing(ctx, userID); err != nil {
		return nil, err
	}
	if stats.Followers, err = s.followRepo.CountFollowers(ctx, userID); err != nil {
		return nil, err
	}
	if stats.Likes, err = s.likeRepo.CountByUserID(ctx, userID); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 更新字段
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.ImageURL != "" {
		user.ImageURL = req.ImageURL
	}
	if req.HeaderImageURL != "" {
		user.HeaderImageURL = req.HeaderImageURL
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Location != "" {
		user.Location = req.Location
	}

	session := repository.NewSession(s.db)
	session.Save(user)
	if err := session.Commit(ctx); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User updated successfully")
	return user, nil
}

// DeleteAccount removes the user. Their messages stay with a null author;
// follows and likes go with the account.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	following, err := s.followRepo.GetFollowingIDs(ctx, userID)
	if err != nil {
		return err
	}
	followers, err := s.followRepo.GetFollowers(ctx, userID, 0, -1)
	if err != nil {
		return err
	}
	related := following
	for _, f := range followers {
		related = append(related, f.ID)
	}

	session := repository.NewSession(s.db)
	session.Delete(user)
	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	publishEvent(ctx, s.producer, s.logger, userKey(userID), queue.EventUserDeleted, queue.UserEventData{
		UserID:   userID,
		Username: user.Username,
		Related:  related,
	})

	s.logger.WithField("user_id", userID).Info("User deleted")
	return nil
}

// Search lists users whose username contains query, or every user when
// query is empty.
func (s *UserService) Search(ctx context.Context, query string, offset, limit int) ([]*models.User, error) {
	var users []*models.User
	var err error
	if query == "" {
		users, err = s.userRepo.List(ctx, offset, limit)
	} else {
		users, err = s.userRepo.Search(ctx, query, offset, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// IsTaken reports whether err is a signup or profile update rejected for a
// username or email that already exists.
func IsTaken(err error) bool {
	return errors.Is(err, repository.ErrIntegrity)
}

func userKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}
