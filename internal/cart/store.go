package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aquamart/internal/domain"
)

// Store reads and clears the active cart kept in Redis by the storefront.
// This subsystem never writes cart contents, only consumes and clears
// them; Clear is idempotent so the post-settlement call can repeat.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) key(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (s *Store) Get(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cart: %w", err)
	}

	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decoding cart: %w", err)
	}

	return items, nil
}

func (s *Store) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}
