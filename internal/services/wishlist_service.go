package services

import (
	"slices"

	"boutique/internal/models"
	"boutique/internal/repositories"
)

// WishlistOutcome distinguishes a performed mutation from a no-op.
type WishlistOutcome int

const (
	WishlistUnchanged WishlistOutcome = iota
	WishlistAdded
	WishlistRemoved
)

// WishlistService manages the wishlist of the authenticated user. Every
// operation is keyed by the caller's own user ID.
type WishlistService struct {
	userRepo    repositories.UserRepository
	productRepo repositories.ProductRepository
	events      EventPublisher
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(userRepo repositories.UserRepository, productRepo repositories.ProductRepository, events EventPublisher) *WishlistService {
	return &WishlistService{
		userRepo:    userRepo,
		productRepo: productRepo,
		events:      events,
	}
}

// Add appends productID to the wishlist. A product already present is left
// in place and reported as WishlistUnchanged without writing to the store.
func (s *WishlistService) Add(userID, productID string) (WishlistOutcome, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return WishlistUnchanged, err
	}
	if user.InWishlist(productID) {
		return WishlistUnchanged, nil
	}
	if _, err := s.productRepo.GetByID(productID); err != nil {
		return WishlistUnchanged, err
	}

	user.Wishlist = append(user.Wishlist, productID)
	if err := s.userRepo.Save(user); err != nil {
		return WishlistUnchanged, err
	}

	publish(s.events, EventWishlistAdded, map[string]interface{}{
		"userID":    userID,
		"productID": productID,
	})
	return WishlistAdded, nil
}

// Remove filters productID out of the wishlist. Removing an absent product is
// a silent no-op.
func (s *WishlistService) Remove(userID, productID string) (WishlistOutcome, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return WishlistUnchanged, err
	}
	if !user.InWishlist(productID) {
		return WishlistUnchanged, nil
	}

	user.Wishlist = slices.DeleteFunc(user.Wishlist, func(id string) bool { return id == productID })
	if err := s.userRepo.Save(user); err != nil {
		return WishlistUnchanged, err
	}

	publish(s.events, EventWishlistRemoved, map[string]interface{}{
		"userID":    userID,
		"productID": productID,
	})
	return WishlistRemoved, nil
}

// Items returns the wishlist products in insertion order. IDs of deleted
// products are skipped.
func (s *WishlistService) Items(userID string) ([]models.Product, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return s.productRepo.GetByIDs(user.Wishlist)
}
