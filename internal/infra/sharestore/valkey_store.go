package sharestore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/neurabot/neurabot-api/internal/domain/share"
)

// incrementScript bumps view_count only when the token is usable at ARGV[1]
// (unix millis). Negative results name the refusal.
const incrementScript = `
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then return -1 end
local f = redis.call('HMGET', key, 'is_active', 'expires_at', 'max_views', 'view_count')
if f[1] ~= '1' then return -1 end
if tonumber(ARGV[1]) > tonumber(f[2]) then return -2 end
local maxViews = tonumber(f[3])
if maxViews >= 0 and tonumber(f[4]) >= maxViews then return -3 end
return redis.call('HINCRBY', key, 'view_count', 1)
`

// ValkeyStore keeps each share token in a Valkey hash.
type ValkeyStore struct {
	client    valkey.Client
	prefix    string
	increment *valkey.Lua
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "share"
	}
	return &ValkeyStore{
		client:    client,
		prefix:    prefix,
		increment: valkey.NewLuaScript(incrementScript),
	}
}

var _ share.Store = (*ValkeyStore)(nil)

func (s *ValkeyStore) Create(ctx context.Context, token share.Token) error {
	cmd := s.client.B().Hset().Key(s.tokenKey(token.Token)).FieldValue()
	for _, kv := range encodeToken(token) {
		cmd = cmd.FieldValue(kv[0], kv[1])
	}
	return s.client.Do(ctx, cmd.Build()).Error()
}

func (s *ValkeyStore) Get(ctx context.Context, token string) (share.Token, bool, error) {
	fields, err := s.client.Do(ctx, s.client.B().Hgetall().Key(s.tokenKey(token)).Build()).AsStrMap()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return share.Token{}, false, nil
		}
		return share.Token{}, false, err
	}
	if len(fields) == 0 {
		return share.Token{}, false, nil
	}
	t, err := decodeToken(token, fields)
	if err != nil {
		return share.Token{}, false, err
	}
	return t, true, nil
}

func (s *ValkeyStore) IncrementView(ctx context.Context, token string, now time.Time) (share.Token, error) {
	key := s.tokenKey(token)
	count, err := s.increment.Exec(ctx, s.client, []string{key}, []string{strconv.FormatInt(now.UnixMilli(), 10)}).AsInt64()
	if err != nil {
		return share.Token{}, err
	}
	switch count {
	case -1:
		return share.Token{}, share.ErrTokenNotFound
	case -2:
		return share.Token{}, share.ErrTokenExpired
	case -3:
		return share.Token{}, share.ErrLimitReached
	}
	t, found, err := s.Get(ctx, token)
	if err != nil {
		return share.Token{}, err
	}
	if !found {
		return share.Token{}, share.ErrTokenNotFound
	}
	t.ViewCount = int(count)
	return t, nil
}

func (s *ValkeyStore) Kind() string { return "valkey" }

func (s *ValkeyStore) tokenKey(token string) string {
	return fmt.Sprintf("%s:token:%s", s.prefix, token)
}

func encodeToken(t share.Token) [][2]string {
	maxViews := -1
	if t.MaxViews != nil {
		maxViews = *t.MaxViews
	}
	active := "0"
	if t.IsActive {
		active = "1"
	}
	return [][2]string{
		{"history_id", t.HistoryID},
		{"created_by", t.CreatedBy},
		{"expires_at", strconv.FormatInt(t.ExpiresAt.UnixMilli(), 10)},
		{"max_views", strconv.Itoa(maxViews)},
		{"view_count", strconv.Itoa(t.ViewCount)},
		{"is_active", active},
		{"created_at", strconv.FormatInt(t.CreatedAt.UnixMilli(), 10)},
	}
}

func decodeToken(token string, fields map[string]string) (share.Token, error) {
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return share.Token{}, fmt.Errorf("decode expires_at: %w", err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return share.Token{}, fmt.Errorf("decode created_at: %w", err)
	}
	maxViews, err := strconv.Atoi(fields["max_views"])
	if err != nil {
		return share.Token{}, fmt.Errorf("decode max_views: %w", err)
	}
	views, err := strconv.Atoi(fields["view_count"])
	if err != nil {
		return share.Token{}, fmt.Errorf("decode view_count: %w", err)
	}
	t := share.Token{
		Token:     token,
		HistoryID: fields["history_id"],
		CreatedBy: fields["created_by"],
		ExpiresAt: time.UnixMilli(expires).UTC(),
		ViewCount: views,
		IsActive:  fields["is_active"] == "1",
		CreatedAt: time.UnixMilli(created).UTC(),
	}
	if maxViews >= 0 {
		t.MaxViews = &maxViews
	}
	return t, nil
}
