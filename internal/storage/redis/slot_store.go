package redis

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// acquireScript provisions the hash on first use, then claims the
// lexically first FREE slot.
var acquireScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  for _, id in ipairs(ARGV) do
    redis.call('HSET', KEYS[1], id, 'FREE')
  end
end
local flat = redis.call('HGETALL', KEYS[1])
local ids = {}
for i = 1, #flat, 2 do
  ids[#ids + 1] = flat[i]
end
table.sort(ids)
for _, id in ipairs(ids) do
  if redis.call('HGET', KEYS[1], id) == 'FREE' then
    redis.call('HSET', KEYS[1], id, 'IN_USE')
    return id
  end
end
return false
`) //nolint:gochecknoglobals

// releaseScript frees a known slot and ignores unknown ones.
var releaseScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  redis.call('HSET', KEYS[1], ARGV[1], 'FREE')
end
return 1
`) //nolint:gochecknoglobals

// SlotStore is a Redis implementation of storage.SlotStore.
type SlotStore struct {
	client   *redis.Client
	key      string
	slotIDs  []string
	lockWait time.Duration
}

// NewSlotStore creates a slot store on the hash <prefix>:slots.
func NewSlotStore(client *redis.Client, opts Options, slotIDs []string) *SlotStore {
	return &SlotStore{
		client:   client,
		key:      prefixOr(opts.Prefix) + ":slots",
		slotIDs:  append([]string(nil), slotIDs...),
		lockWait: opts.LockWait,
	}
}

// Acquire claims the first FREE slot.
func (s *SlotStore) Acquire(ctx context.Context) (string, error) {
	args := make([]any, len(s.slotIDs))
	for i, id := range s.slotIDs {
		args[i] = id
	}

	var slotID string
	err := bounded(ctx, s.lockWait, func(ctx context.Context) error {
		id, err := acquireScript.Run(ctx, s.client, []string{s.key}, args...).Text()
		if errors.Is(err, redis.Nil) {
			return storage.ErrNoSlotAvailable
		}
		slotID = id
		return err
	})
	if err != nil {
		return "", err
	}
	return slotID, nil
}

// Release frees the slot.
func (s *SlotStore) Release(ctx context.Context, slotID string) error {
	return bounded(ctx, s.lockWait, func(ctx context.Context) error {
		return releaseScript.Run(ctx, s.client, []string{s.key}, slotID).Err()
	})
}

// List returns the slot table ordered by id.
func (s *SlotStore) List(ctx context.Context) ([]domain.Slot, error) {
	table, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	slots := make([]domain.Slot, 0, len(table))
	for id, state := range table {
		slots = append(slots, domain.Slot{ID: id, State: domain.SlotState(state)})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })
	return slots, nil
}

var _ storage.SlotStore = (*SlotStore)(nil)
