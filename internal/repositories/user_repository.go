package repositories

import "boutique/internal/models"

// UserRepository defines the interface for user data access.
// Create, Update and Save report uniqueness violations as *apperror.ConflictError;
// lookups of missing users wrap apperror.ErrNotFound.
type UserRepository interface {
	Create(user *models.User) error
	GetAll() ([]models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	Update(id string, update models.UserUpdate) (*models.User, error)
	Save(user *models.User) error
	Delete(id string) error
}
