package repositories

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"boutique/internal/apperror"
	"boutique/internal/models"

	"github.com/google/uuid"
)

// InMemoryUserRepository is an in-memory implementation of UserRepository.
// Email and username uniqueness is checked under the write lock.
type InMemoryUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewInMemoryUserRepository creates a new instance of InMemoryUserRepository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user.
func (r *InMemoryUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Wishlist == nil {
		user.Wishlist = []string{}
	}
	if ce := r.conflict(user); ce != nil {
		return fmt.Errorf("failed to create user: %w", ce)
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = clone(*user)
	return nil
}

// GetAll returns all users, oldest first.
func (r *InMemoryUserRepository) GetAll() ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userList := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		userList = append(userList, clone(u))
	}
	sort.SliceStable(userList, func(i, j int) bool {
		return userList[i].CreatedAt.Before(userList[j].CreatedAt)
	})
	return userList, nil
}

// GetByUsername returns a user by username.
func (r *InMemoryUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username }, "username "+username)
}

// GetByEmail returns a user by email.
func (r *InMemoryUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email }, "email "+email)
}

// GetByID returns a user by ID.
func (r *InMemoryUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s not found: %w", id, apperror.ErrNotFound)
	}
	user = clone(user)
	return &user, nil
}

// Update applies the update to the user with the given ID.
func (r *InMemoryUserRepository) Update(id string, update models.UserUpdate) (*models.User, error) {
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

// Save replaces the stored user, keeping its creation time.
func (r *InMemoryUserRepository) Save(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("user with ID %s not found for update: %w", user.ID, apperror.ErrNotFound)
	}
	if ce := r.conflict(user); ce != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, ce)
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	r.users[user.ID] = clone(*user)
	return nil
}

// Delete removes a user by ID.
func (r *InMemoryUserRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user with ID %s not found for deletion: %w", id, apperror.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *InMemoryUserRepository) find(match func(models.User) bool, desc string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			u = clone(u)
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with %s not found: %w", desc, apperror.ErrNotFound)
}

// conflict must be called with the write lock held.
func (r *InMemoryUserRepository) conflict(user *models.User) *apperror.ConflictError {
	for id, u := range r.users {
		if id != user.ID && u.Email == user.Email {
			return &apperror.ConflictError{Field: "email", Value: user.Email}
		}
	}
	for id, u := range r.users {
		if id != user.ID && u.Username == user.Username {
			return &apperror.ConflictError{Field: "username", Value: user.Username}
		}
	}
	return nil
}

func clone(u models.User) models.User {
	u.Wishlist = slices.Clone(u.Wishlist)
	return u
}
