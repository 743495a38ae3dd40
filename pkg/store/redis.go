package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisKeyPrefix = "drag"
	DefaultRedisTxRetries = 16

	revisionField = "_rev"
)

// writeScript applies a write to a game hash and publishes the resulting
// snapshot on the game's channel in the same atomic step, so subscribers
// observe versions in commit order.
//
// KEYS: game hash, event channel, lobby set.
// ARGV: mode (create, update, delete), game id, then field/value pairs.
var writeScript = redis.NewScript(`
local mode = ARGV[1]
local exists = redis.call('EXISTS', KEYS[1]) == 1
if mode == 'delete' then
  if not exists then return redis.error_reply('NOTFOUND') end
  redis.call('DEL', KEYS[1])
  redis.call('SREM', KEYS[3], ARGV[2])
  redis.call('PUBLISH', KEYS[2], '')
  return 1
end
if mode == 'create' and exists then return redis.error_reply('EXISTS') end
if mode == 'update' and not exists then return redis.error_reply('NOTFOUND') end
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('HINCRBY', KEYS[1], '_rev', 1)
if redis.call('HGET', KEYS[1], 'phase') == 'WAITING' then
  redis.call('SADD', KEYS[3], ARGV[2])
else
  redis.call('SREM', KEYS[3], ARGV[2])
end
redis.call('PUBLISH', KEYS[2], cjson.encode(redis.call('HGETALL', KEYS[1])))
return 1
`)

type NewRedisStoreOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TxRetries bounds how often a transaction is retried after a conflict.
	TxRetries int
}

// RedisStore keeps each game in a hash with one field per scalar and one
// field per slot, e.g. "blockStates.3", so a patch only rewrites its field.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	txRetries int
}

func NewRedisStore(ctx context.Context, opts NewRedisStoreOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %v", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts), nil
}

func NewRedisStoreFromClient(client *redis.Client, opts NewRedisStoreOptions) *RedisStore {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	retries := opts.TxRetries
	if retries <= 0 {
		retries = DefaultRedisTxRetries
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
		txRetries: retries,
	}
}

func (s *RedisStore) gameKey(id string) string {
	return fmt.Sprintf("%s:game:%s", s.keyPrefix, id)
}

func (s *RedisStore) channel(id string) string {
	return s.gameKey(id) + ":events"
}

func (s *RedisStore) lobbyKey() string {
	return s.keyPrefix + ":lobbies"
}

func (s *RedisStore) keys(id string) []string {
	return []string{s.gameKey(id), s.channel(id), s.lobbyKey()}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*types.GameRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.gameKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game %s: %v", id, err)
	}
	if len(fields) == 0 {
		return nil, &ErrNotFound{ID: id}
	}
	return decodeHash(id, fields)
}

func (s *RedisStore) Transact(ctx context.Context, id string, fn TxFunc) error {
	key := s.gameKey(id)
	for attempt := 1; attempt <= s.txRetries; attempt++ {
		var fnErr error
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			fields, err := rtx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			tx := &redisTx{id: id}
			if len(fields) > 0 {
				if tx.record, err = decodeHash(id, fields); err != nil {
					return err
				}
			}
			if fnErr = fn(tx); fnErr != nil {
				return fnErr
			}
			if tx.mode == "" {
				return nil
			}
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				writeScript.Eval(ctx, pipe, s.keys(id), tx.args()...)
				return nil
			})
			return err
		}, key)
		if fnErr != nil {
			return fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			log.Debug("Transaction on game %s conflicted, attempt %d", id, attempt)
			continue
		}
		return mapScriptError(id, err)
	}
	return &ErrTxAborted{ID: id, Attempts: s.txRetries}
}

func (s *RedisStore) Patch(ctx context.Context, id string, update Update) error {
	value, err := encodeUpdate(update)
	if err != nil {
		return err
	}
	args := []interface{}{"update", id, update.Path(), value}
	err = writeScript.Run(ctx, s.client, s.keys(id), args...).Err()
	return mapScriptError(id, err)
}

func (s *RedisStore) Subscribe(ctx context.Context, id string) (Subscription, error) {
	pubsub := s.client.Subscribe(ctx, s.channel(id))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to game %s: %v", id, err)
	}
	subCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan Event),
		cancel: cancel,
	}
	go sub.run(subCtx, s, id)
	return sub, nil
}

func (s *RedisStore) ListLobbies(ctx context.Context) ([]*types.GameRecord, error) {
	ids, err := s.client.SMembers(ctx, s.lobbyKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies: %v", err)
	}
	lobbies := make([]*types.GameRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.Get(ctx, id)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if record.IsJoinable() {
			lobbies = append(lobbies, record)
		}
	}
	sort.Slice(lobbies, func(i, j int) bool { return lobbies[i].ID < lobbies[j].ID })
	return lobbies, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisTx struct {
	id     string
	record *types.GameRecord
	mode   string
	fields []interface{}
}

func (t *redisTx) Get() (*types.GameRecord, error) {
	if t.record == nil {
		return nil, &ErrNotFound{ID: t.id}
	}
	return t.record.Copy(), nil
}

func (t *redisTx) Create(record *types.GameRecord) error {
	if t.record != nil {
		return &ErrAlreadyExists{ID: t.id}
	}
	t.record = record.Copy()
	t.record.ID = t.id
	fields, err := encodeRecord(t.record)
	if err != nil {
		return err
	}
	t.mode = "create"
	t.fields = fields
	return nil
}

func (t *redisTx) Update(updates ...Update) error {
	if t.record == nil {
		return &ErrNotFound{ID: t.id}
	}
	for _, u := range updates {
		value, err := encodeUpdate(u)
		if err != nil {
			return err
		}
		u.Apply(t.record)
		t.fields = append(t.fields, u.Path(), value)
	}
	if t.mode == "" {
		t.mode = "update"
	}
	return nil
}

func (t *redisTx) Delete() error {
	if t.record == nil {
		return &ErrNotFound{ID: t.id}
	}
	t.record = nil
	t.mode = "delete"
	t.fields = nil
	return nil
}

func (t *redisTx) args() []interface{} {
	args := []interface{}{t.mode, t.id}
	return append(args, t.fields...)
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan Event
	cancel context.CancelFunc
	once   sync.Once
}

func (r *redisSubscription) run(ctx context.Context, s *RedisStore, id string) {
	defer close(r.out)

	// Versions are numbered by the write script, anything older than what
	// was already delivered is dropped.
	var lastRev int64 = -1
	send := func(ev Event) bool {
		select {
		case r.out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	fields, err := s.client.HGetAll(ctx, s.gameKey(id)).Result()
	if err != nil {
		if ctx.Err() == nil {
			send(Event{Err: fmt.Errorf("failed to read game %s: %v", id, err)})
		}
		return
	}
	if len(fields) > 0 {
		record, err := decodeHash(id, fields)
		if err != nil {
			send(Event{Err: err})
			return
		}
		lastRev = hashRevision(fields)
		if !send(Event{Record: record}) {
			return
		}
	}

	for {
		msg, err := r.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				send(Event{Err: fmt.Errorf("subscription to game %s failed: %v", id, err)})
			}
			return
		}
		if msg.Payload == "" {
			lastRev = -1
			if !send(Event{Deleted: true}) {
				return
			}
			continue
		}
		fields, err := decodeSnapshot(msg.Payload)
		if err != nil {
			send(Event{Err: err})
			return
		}
		rev := hashRevision(fields)
		if rev <= lastRev {
			continue
		}
		lastRev = rev
		record, err := decodeHash(id, fields)
		if err != nil {
			send(Event{Err: err})
			return
		}
		if !send(Event{Record: record}) {
			return
		}
	}
}

func (r *redisSubscription) Updates() <-chan Event {
	return r.out
}

func (r *redisSubscription) Close() error {
	var err error
	r.once.Do(func() {
		r.cancel()
		err = r.pubsub.Close()
	})
	return err
}

func mapScriptError(id string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsAlreadyExists(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NOTFOUND"):
		return &ErrNotFound{ID: id}
	case strings.Contains(msg, "EXISTS"):
		return &ErrAlreadyExists{ID: id}
	}
	return fmt.Errorf("failed to write game %s: %w", id, err)
}

func encodeRecord(record *types.GameRecord) ([]interface{}, error) {
	dto := types.GameRecordToDTO(record)
	errMsg := ""
	if dto.Error != nil {
		errMsg = *dto.Error
	}
	fields := []interface{}{
		"id", dto.ID,
		"roundTimeSeconds", strconv.FormatInt(dto.RoundTimeSeconds, 10),
		"maxPlayers", strconv.Itoa(dto.MaxPlayers),
		"phase", dto.Phase,
		"language", dto.Language,
		"error", errMsg,
	}
	for key, p := range dto.JoinedPlayers {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		fields = append(fields, "joinedPlayers."+key, string(b))
	}
	for key, block := range dto.BlockStates {
		b, err := json.Marshal(block)
		if err != nil {
			return nil, err
		}
		fields = append(fields, "blockStates."+key, string(b))
	}
	return fields, nil
}

func encodeUpdate(u Update) (string, error) {
	switch v := u.Value().(type) {
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %v", u.Path(), err)
		}
		return string(b), nil
	}
}

// decodeSnapshot parses the flat field/value array published by writeScript.
func decodeSnapshot(payload string) (map[string]string, error) {
	var flat []string
	if err := json.Unmarshal([]byte(payload), &flat); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %v", err)
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("failed to decode snapshot: odd field count %d", len(flat))
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		fields[flat[i]] = flat[i+1]
	}
	return fields, nil
}

func hashRevision(fields map[string]string) int64 {
	rev, err := strconv.ParseInt(fields[revisionField], 10, 64)
	if err != nil {
		return 0
	}
	return rev
}

func decodeHash(id string, fields map[string]string) (*types.GameRecord, error) {
	dto := &types.GameRecordDTO{
		ID:            fields["id"],
		Phase:         fields["phase"],
		Language:      fields["language"],
		JoinedPlayers: make(map[string]*types.PlayerInfoDTO),
		BlockStates:   make(map[string]types.BlockStateDTO),
	}
	if dto.ID == "" {
		dto.ID = id
	}
	var err error
	if dto.RoundTimeSeconds, err = strconv.ParseInt(fields["roundTimeSeconds"], 10, 64); err != nil {
		return nil, fmt.Errorf("game %s has invalid roundTimeSeconds: %v", id, err)
	}
	if dto.MaxPlayers, err = strconv.Atoi(fields["maxPlayers"]); err != nil {
		return nil, fmt.Errorf("game %s has invalid maxPlayers: %v", id, err)
	}
	if msg := fields["error"]; msg != "" {
		dto.Error = &msg
	}
	for name, value := range fields {
		switch {
		case strings.HasPrefix(name, "joinedPlayers."):
			var p *types.PlayerInfoDTO
			if err := json.Unmarshal([]byte(value), &p); err != nil {
				return nil, fmt.Errorf("game %s field %s: %v", id, name, err)
			}
			dto.JoinedPlayers[strings.TrimPrefix(name, "joinedPlayers.")] = p
		case strings.HasPrefix(name, "blockStates."):
			var b types.BlockStateDTO
			if err := json.Unmarshal([]byte(value), &b); err != nil {
				return nil, fmt.Errorf("game %s field %s: %v", id, name, err)
			}
			dto.BlockStates[strings.TrimPrefix(name, "blockStates.")] = b
		}
	}
	return types.GameRecordFromDTO(dto)
}
