package world

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// shardedMap - потокобезопасная карта int64 -> V, разбитая на шарды.
// Шард выбирается по xxhash ключа, чтобы соседние чанки не попадали в один шард.
type shardedMap[V comparable] struct {
	shards [shardCount]mapShard[V]
}

type mapShard[V comparable] struct {
	mu sync.RWMutex
	m  map[int64]V
}

func newShardedMap[V comparable]() *shardedMap[V] {
	sm := &shardedMap[V]{}
	for i := range sm.shards {
		sm.shards[i].m = make(map[int64]V)
	}
	return sm
}

func (sm *shardedMap[V]) shard(key int64) *mapShard[V] {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	return &sm.shards[xxhash.Sum64(b[:])%shardCount]
}

// Load возвращает значение по ключу
func (sm *shardedMap[V]) Load(key int64) (V, bool) {
	s := sm.shard(key)
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()
	return v, ok
}

// Swap сохраняет значение и возвращает предыдущее
func (sm *shardedMap[V]) Swap(key int64, v V) (prev V, loaded bool) {
	s := sm.shard(key)
	s.mu.Lock()
	prev, loaded = s.m[key]
	s.m[key] = v
	s.mu.Unlock()
	return prev, loaded
}

// LoadAndDelete удаляет ключ и возвращает удалённое значение
func (sm *shardedMap[V]) LoadAndDelete(key int64) (V, bool) {
	s := sm.shard(key)
	s.mu.Lock()
	v, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	s.mu.Unlock()
	return v, ok
}

// CompareAndDelete удаляет ключ, только если по нему лежит именно old
func (sm *shardedMap[V]) CompareAndDelete(key int64, old V) bool {
	s := sm.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok && v == old {
		delete(s.m, key)
		return true
	}
	return false
}

// Len возвращает общее число элементов
func (sm *shardedMap[V]) Len() int {
	n := 0
	for i := range sm.shards {
		s := &sm.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Range обходит элементы по шардам. Каждый шард копируется перед вызовом fn,
// поэтому fn может менять карту. Если fn вернёт false, обход прекращается.
func (sm *shardedMap[V]) Range(fn func(key int64, v V) bool) {
	type kv struct {
		k int64
		v V
	}
	var buf []kv
	for i := range sm.shards {
		s := &sm.shards[i]
		s.mu.RLock()
		buf = buf[:0]
		for k, v := range s.m {
			buf = append(buf, kv{k, v})
		}
		s.mu.RUnlock()

		for _, e := range buf {
			if !fn(e.k, e.v) {
				return
			}
		}
	}
}

// Values возвращает снимок всех значений
func (sm *shardedMap[V]) Values() []V {
	out := make([]V, 0, sm.Len())
	sm.Range(func(_ int64, v V) bool {
		out = append(out, v)
		return true
	})
	return out
}
