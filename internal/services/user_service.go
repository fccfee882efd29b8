package services

import (
	"errors"
	"fmt"
	"strings"

	"boutique/internal/apperror"
	"boutique/internal/models"
	"boutique/internal/repositories"

	"github.com/rs/zerolog/log"
)

// FileRemover deletes previously stored uploads.
type FileRemover interface {
	Remove(path string) error
}

// UserService handles profile management.
type UserService struct {
	userRepo repositories.UserRepository
	hasher   PasswordHasher
	files    FileRemover
	events   EventPublisher
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository, hasher PasswordHasher, files FileRemover, events EventPublisher) *UserService {
	return &UserService{
		userRepo: userRepo,
		hasher:   hasher,
		files:    files,
		events:   events,
	}
}

// GetAllUsers retrieves all users.
func (s *UserService) GetAllUsers() ([]models.User, error) {
	return s.userRepo.GetAll()
}

// GetOtherUsers retrieves every user except the one with the given ID.
func (s *UserService) GetOtherUsers(id string) ([]models.User, error) {
	users, err := s.userRepo.GetAll()
	if err != nil {
		return nil, err
	}
	others := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID != id {
			others = append(others, u)
		}
	}
	return others, nil
}

// GetUserByID retrieves a single user.
func (s *UserService) GetUserByID(id string) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// ProfileInput holds the editable profile fields; empty strings leave a field unchanged.
type ProfileInput struct {
	Name       string
	Username   string
	Email      string
	Password   string
	ProfilePic string // path of a freshly stored upload
}

// UpdateProfile edits the actor's own profile. The password is re-hashed only
// when a non-empty one is supplied; a new picture replaces and deletes the old one.
func (s *UserService) UpdateProfile(actor models.UserSnapshot, id string, input ProfileInput) (*models.User, error) {
	if actor.ID != id {
		return nil, fmt.Errorf("cannot edit another user's profile: %w", apperror.ErrForbidden)
	}

	existing, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	var update models.UserUpdate
	if v := strings.TrimSpace(input.Name); v != "" {
		update.Name = &v
	}
	if v := strings.TrimSpace(input.Username); v != "" {
		update.Username = &v
	}
	if v := strings.TrimSpace(input.Email); v != "" {
		update.Email = &v
	}
	if strings.TrimSpace(input.Password) != "" {
		hashed, err := s.hasher.Hash(input.Password)
		if err != nil {
			return nil, err
		}
		update.Password = &hashed
	}
	if input.ProfilePic != "" {
		update.ProfilePic = &input.ProfilePic
	}

	updated, err := s.userRepo.Update(id, update)
	if err != nil {
		return nil, err
	}

	if input.ProfilePic != "" && existing.ProfilePic != "" && existing.ProfilePic != input.ProfilePic {
		s.removeFile(existing.ProfilePic)
	}
	return updated, nil
}

// DeleteUser removes a user and their stored picture. Only the user themself
// or an admin may delete an account.
func (s *UserService) DeleteUser(actor models.UserSnapshot, id string) (*models.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, fmt.Errorf("cannot delete another user: %w", apperror.ErrForbidden)
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Delete(id); err != nil {
		return nil, err
	}
	if user.ProfilePic != "" {
		s.removeFile(user.ProfilePic)
	}

	publish(s.events, EventUserDeleted, map[string]interface{}{
		"userID":    user.ID,
		"deletedBy": actor.ID,
	})
	return user, nil
}

// EnsureAdmin creates an admin account for email unless a user with that email exists.
func (s *UserService) EnsureAdmin(email, username, password string) (*models.User, error) {
	existing, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	admin := &models.User{
		Name:     "Administrator",
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     models.RoleAdmin,
	}
	if err := s.userRepo.Create(admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	log.Info().Str("email", email).Msg("Admin account created")
	return admin, nil
}

func (s *UserService) removeFile(path string) {
	if s.files == nil {
		return
	}
	if err := s.files.Remove(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove profile picture")
		return
	}
	log.Info().Str("path", path).Msg("Profile picture removed")
}
