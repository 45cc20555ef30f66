package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/types"
	"github.com/redis/go-redis/v9"
)

// PageKey holds one page as JSON.
func PageKey(userID, id string) string {
	return "readlater:user:" + userID + ":page:" + id
}

// IndexKey is the sorted set of a user's page ids scored by saved_at.
func IndexKey(userID string) string {
	return "readlater:user:" + userID + ":pages"
}

// ChangesChannel carries Change messages for one user.
func ChangesChannel(userID string) string {
	return "readlater:user:" + userID + ":changes"
}

// encodeChange renders the pub/sub message announcing a change to one page.
func encodeChange(op, userID, id string) ([]byte, error) {
	data, err := json.Marshal(Change{Op: op, UserID: userID, PageID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return data, nil
}

// Redis is a Repository backed by Redis keys and pub/sub.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) List(ctx context.Context, userID string) ([]types.Page, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	ids, err := r.client.ZRevRange(ctx, IndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list page ids: %w", err)
	}
	out := []types.Page{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = PageKey(userID, id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// index entry without a value; skip like a missing row
			continue
		}
		var p types.Page
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			applog.Error("cloud.redis_decode", err, "id", ids[i])
			continue
		}
		out = append(out, withSNS(p))
	}
	return out, nil
}

func (r *Redis) Upsert(ctx context.Context, userID string, p types.Page) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if p.ID == "" {
		return errors.New("cloud: page without id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	change, err := encodeChange(OpUpdate, userID, p.ID)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, PageKey(userID, p.ID), data, 0)
		pipe.ZAdd(ctx, IndexKey(userID), redis.Z{Score: float64(p.SavedAt.UnixMilli()), Member: p.ID})
		pipe.Publish(ctx, ChangesChannel(userID), change)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert page %s: %w", p.ID, err)
	}
	return nil
}

func (r *Redis) SetRead(ctx context.Context, userID, id string, read bool) error {
	if userID == "" {
		return ErrNoIdentity
	}
	key := PageKey(userID, id)
	change, err := encodeChange(OpUpdate, userID, id)
	if err != nil {
		return err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var p types.Page
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal page: %w", err)
		}
		p.Read = read
		updated, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.Publish(ctx, ChangesChannel(userID), change)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("set read %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoIdentity
	}
	change, err := encodeChange(OpDelete, userID, id)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, PageKey(userID, id))
		pipe.ZRem(ctx, IndexKey(userID), id)
		pipe.Publish(ctx, ChangesChannel(userID), change)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, userID string) (<-chan Change, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	ps := r.client.Subscribe(ctx, ChangesChannel(userID))
	// Wait for the subscription confirmation so no change is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", ChangesChannel(userID), err)
	}

	out := make(chan Change, changeBuffer)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
					applog.Error("cloud.redis_change_decode", err, "payload", m.Payload)
					continue
				}
				send(out, c)
			}
		}
	}()
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
