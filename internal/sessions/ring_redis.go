package sessions

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRing stores ring entries with a TTL so unanswered invitations age out
// without a sweeper. Entries are shared across API instances, which is what
// makes multi-device ringing work: every device of a contact polls the same
// view.
//
// Key layout:
//
//	ring:<contact_id>:<session_id>  -> IncomingCall JSON, TTL = ring ttl
//	ringidx:<session_id>            -> set of contact ids, TTL = ring ttl
type RedisRing struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRing(rdb *redis.Client, ttl time.Duration) *RedisRing {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &RedisRing{rdb: rdb, ttl: ttl}
}

func ringKey(contactID, sessionID string) string {
	return "ring:" + contactID + ":" + sessionID
}

func ringIdxKey(sessionID string) string {
	return "ringidx:" + sessionID
}

func (r *RedisRing) Ring(ctx context.Context, contactID string, call IncomingCall) error {
	payload, err := json.Marshal(call)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, ringKey(contactID, call.SessionID), payload, r.ttl)
	pipe.SAdd(ctx, ringIdxKey(call.SessionID), contactID)
	pipe.Expire(ctx, ringIdxKey(call.SessionID), r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRing) RingingFor(ctx context.Context, contactID string) ([]IncomingCall, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, "ring:"+contactID+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var out []IncomingCall
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // expired between SCAN and MGET
		}
		var call IncomingCall
		if err := json.Unmarshal([]byte(s), &call); err != nil {
			continue
		}
		out = append(out, call)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedRingingAt.Before(out[j].StartedRingingAt)
	})
	return out, nil
}

func (r *RedisRing) ClearSession(ctx context.Context, sessionID string) error {
	contacts, err := r.rdb.SMembers(ctx, ringIdxKey(sessionID)).Result()
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	for _, c := range contacts {
		pipe.Del(ctx, ringKey(c, sessionID))
	}
	pipe.Del(ctx, ringIdxKey(sessionID))
	_, err = pipe.Exec(ctx)
	return err
}
