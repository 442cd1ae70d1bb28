package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gopherchat/gopherchat/internal/chat"
)

const (
	historyKeyPrefix = "chat:history:"
	botIconKey       = "settings:bot_icon"
)

// Store is the secondary document store. It holds per-user mirror documents
// written by the mirror worker, plus small admin settings. No component in
// the request path ever reads history from here.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func historyKey(userID string) string {
	return historyKeyPrefix + userID
}

// AppendExchange pushes the document onto the user's mirror list, newest
// first, matching the primary store's read order.
func (s *Store) AppendExchange(ctx context.Context, doc chat.MirrorDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redisstore: marshal document: %w", err)
	}
	return s.rdb.LPush(ctx, historyKey(doc.UserID), b).Err()
}

// DeleteHistory drops the user's entire mirror list.
func (s *Store) DeleteHistory(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, historyKey(userID)).Err()
}

func (s *Store) SetBotIcon(ctx context.Context, url string) error {
	return s.rdb.Set(ctx, botIconKey, url, 0).Err()
}
