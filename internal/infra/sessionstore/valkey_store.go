package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/stylecast/internal/domain/session"
)

// minTTL keeps a session that is about to expire from being written without expiry.
const minTTL = time.Second

// ValkeyStore persists sessions in a Valkey-compatible database with native expiry.
// Expiry times are also indexed in a sorted set so expired sessions can be listed
// after Valkey has dropped their payload.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	now    func() time.Time
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "stylecast"
	}
	return &ValkeyStore{client: client, prefix: prefix, now: time.Now}
}

func (s *ValkeyStore) Get(ctx context.Context, id string) (session.Session, bool, error) {
	if id == "" {
		return session.Session{}, false, nil
	}
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, err
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return session.Session{}, false, err
	}
	return sess, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, sess session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(sess.ID)).Value(string(payload))
	if sess.ExpiresAt.IsZero() {
		return s.client.Do(ctx, builder.Build()).Error()
	}
	cmds := valkey.Commands{
		builder.Ex(s.ttl(sess.ExpiresAt)).Build(),
		s.client.B().Zadd().Key(s.expiryKey()).ScoreMember().ScoreMember(float64(sess.ExpiresAt.Unix()), sess.ID).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ValkeyStore) Delete(ctx context.Context, id string) error {
	cmds := valkey.Commands{
		s.client.B().Del().Key(s.key(id)).Build(),
		s.client.B().Zrem().Key(s.expiryKey()).Member(id).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

// ListExpired returns up to limit ids that expired before now, oldest first.
func (s *ValkeyStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	cmd := s.client.B().Zrangebyscore().Key(s.expiryKey()).
		Min("-inf").
		Max("(" + strconv.FormatInt(now.Unix(), 10)).
		Limit(0, int64(limit)).
		Build()
	return s.client.Do(ctx, cmd).AsStrSlice()
}

func (s *ValkeyStore) ttl(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(s.now())
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}

func (s *ValkeyStore) key(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

func (s *ValkeyStore) expiryKey() string {
	return s.prefix + ":session-expiry"
}

var (
	_ session.Store         = (*ValkeyStore)(nil)
	_ session.ExpiredLister = (*ValkeyStore)(nil)
)
