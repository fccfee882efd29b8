package repositories

import (
	"errors"
	"fmt"

	"boutique/internal/apperror"
	"boutique/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// mutable columns written by Save; id and created_at never change.
var userSaveColumns = []string{"Name", "Username", "Email", "Password", "Role", "Wishlist", "ProfilePic", "UpdatedAt"}

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Wishlist == nil {
		user.Wishlist = []string{}
	}
	if err := r.db.Create(user).Error; err != nil {
		if ce, ok := userConflict(err, user); ok {
			return fmt.Errorf("failed to create user: %w", ce)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetAll retrieves all users ordered by creation time.
func (r *GORMUserRepository) GetAll() ([]models.User, error) {
	var users []models.User
	if err := r.db.Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.first("username = ?", username, "username "+username)
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.first("email = ?", email, "email "+email)
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	return r.first("id = ?", id, "ID "+id)
}

func (r *GORMUserRepository) first(query string, arg string, desc string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with %s not found: %w", desc, apperror.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", desc, err)
	}
	return &user, nil
}

// Update applies the update to the user with the given ID and returns the new record.
func (r *GORMUserRepository) Update(id string, update models.UserUpdate) (*models.User, error) {
	user, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	update.Apply(user)
	if err := r.Save(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Save writes the mutable fields of an existing user.
func (r *GORMUserRepository) Save(user *models.User) error {
	res := r.db.Model(user).Select(userSaveColumns).Updates(user)
	if res.Error != nil {
		if ce, ok := userConflict(res.Error, user); ok {
			return fmt.Errorf("failed to update user %s: %w", user.ID, ce)
		}
		return fmt.Errorf("failed to update user %s: %w", user.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s not found for update: %w", user.ID, apperror.ErrNotFound)
	}
	return nil
}

// Delete removes a user by their ID.
func (r *GORMUserRepository) Delete(id string) error {
	res := r.db.Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s not found for deletion: %w", id, apperror.ErrNotFound)
	}
	return nil
}
