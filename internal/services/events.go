package services

import "github.com/rs/zerolog/log"

// Routing keys of the domain events published by the services.
const (
	EventUserRegistered  = "user.registered"
	EventUserDeleted     = "user.deleted"
	EventProductCreated  = "product.created"
	EventProductDeleted  = "product.deleted"
	EventWishlistAdded   = "wishlist.added"
	EventWishlistRemoved = "wishlist.removed"
)

// EventPublisher publishes domain events. A nil publisher disables publishing.
type EventPublisher interface {
	Publish(routingKey string, payload interface{}) error
}

// publish never fails the calling operation; delivery errors are logged.
func publish(p EventPublisher, routingKey string, payload map[string]interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(routingKey, payload); err != nil {
		log.Warn().Err(err).Str("event", routingKey).Msg("Failed to publish event")
	}
}
