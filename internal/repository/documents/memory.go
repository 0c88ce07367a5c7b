package documents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

const subscriberBuffer = 16

type memoryDoc struct {
	version int64
	data    bson.Raw
}

type memorySubscriber struct {
	ch   chan Snapshot
	done chan struct{}
}

// MemoryStore keeps documents in process. Values are round-tripped through BSON
// so callers observe the same encoding rules as the MongoDB store.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]memoryDoc
	subs   map[string]map[int]*memorySubscriber
	nextID int

	// failures lets tests inject store errors per operation name.
	failures map[string]error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]memoryDoc),
		subs:     make(map[string]map[int]*memorySubscriber),
		failures: make(map[string]error),
	}
}

// FailNext makes every call of op ("get", "set", "cas", "update", "delete",
// "list", "subscribe") return err until cleared with a nil err.
func (s *MemoryStore) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Get returns the current snapshot of path.
func (s *MemoryStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if _, _, err := Split(path); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("get"); err != nil {
		return Snapshot{}, err
	}

	snap := s.snapshotLocked(path)
	if !snap.Exists {
		return Snapshot{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return snap, nil
}

// Set writes value unconditionally.
func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	data, err := bson.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("set"); err != nil {
		return err
	}
	s.writeLocked(path, data)
	return nil
}

// CompareAndSet writes value only when the stored version equals expectedVersion.
func (s *MemoryStore) CompareAndSet(ctx context.Context, path string, expectedVersion int64, value any) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	data, err := bson.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("cas"); err != nil {
		return err
	}
	if s.docs[path].version != expectedVersion {
		return fmt.Errorf("%s at version %d: %w", path, expectedVersion, ErrConflict)
	}
	s.writeLocked(path, data)
	return nil
}

// UpdateField adds delta to the numeric field at the dotted path inside the
// document body. A missing field starts from zero.
func (s *MemoryStore) UpdateField(ctx context.Context, path, field string, delta float64) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	if field == "" {
		return fmt.Errorf("update %s: empty field", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("update"); err != nil {
		return err
	}

	current, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	var body bson.M
	if err := bson.Unmarshal(current.data, &body); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if err := incrementField(body, strings.Split(field, "."), delta); err != nil {
		return fmt.Errorf("update %s.%s: %w", path, field, err)
	}

	data, err := bson.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	s.writeLocked(path, data)
	return nil
}

// Delete removes path. Deleting a missing document succeeds.
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("delete"); err != nil {
		return err
	}
	if _, ok := s.docs[path]; !ok {
		return nil
	}
	delete(s.docs, path)
	s.notifyLocked(Snapshot{Path: path, Key: keyOf(path)})
	return nil
}

// List returns the documents directly inside collection whose key lies in
// [fromKey, toKey], ordered by key. Empty bounds are open.
func (s *MemoryStore) List(ctx context.Context, collection, fromKey, toKey string) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("list"); err != nil {
		return nil, err
	}

	var out []Snapshot
	for path := range s.docs {
		parent, key, err := Split(path)
		if err != nil || parent != collection {
			continue
		}
		if fromKey != "" && key < fromKey {
			continue
		}
		if toKey != "" && key > toKey {
			continue
		}
		out = append(out, s.snapshotLocked(path))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Subscribe delivers the current state of path and then every change until the
// returned function is called or ctx ends. Slow subscribers only see the most
// recent states; intermediate ones may be skipped.
func (s *MemoryStore) Subscribe(ctx context.Context, path string, onChange func(Snapshot)) (func(), error) {
	if _, _, err := Split(path); err != nil {
		return nil, err
	}
	if onChange == nil {
		return nil, fmt.Errorf("subscribe %s: nil callback", path)
	}

	sub := &memorySubscriber{
		ch:   make(chan Snapshot, subscriberBuffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if err := s.failure("subscribe"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	id := s.nextID
	s.nextID++
	if s.subs[path] == nil {
		s.subs[path] = make(map[int]*memorySubscriber)
	}
	s.subs[path][id] = sub
	sub.ch <- s.snapshotLocked(path)
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case snap := <-sub.ch:
				select {
				case <-sub.done:
					return
				default:
				}
				onChange(snap)
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[path], id)
			if len(s.subs[path]) == 0 {
				delete(s.subs, path)
			}
			s.mu.Unlock()
			close(sub.done)
		})
	}
	stop := context.AfterFunc(ctx, unsubscribe)

	return func() {
		stop()
		unsubscribe()
	}, nil
}

func (s *MemoryStore) failure(op string) error {
	return s.failures[op]
}

func (s *MemoryStore) snapshotLocked(path string) Snapshot {
	doc, ok := s.docs[path]
	if !ok {
		return Snapshot{Path: path, Key: keyOf(path)}
	}
	return Snapshot{
		Path:    path,
		Key:     keyOf(path),
		Version: doc.version,
		Exists:  true,
		Data:    doc.data,
	}
}

func (s *MemoryStore) writeLocked(path string, data []byte) {
	doc := memoryDoc{version: s.docs[path].version + 1, data: bson.Raw(data)}
	s.docs[path] = doc
	s.notifyLocked(s.snapshotLocked(path))
}

// notifyLocked enqueues snap for every subscriber of its path. A full buffer
// drops the oldest pending snapshot.
func (s *MemoryStore) notifyLocked(snap Snapshot) {
	for _, sub := range s.subs[snap.Path] {
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
}

func keyOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func incrementField(doc bson.M, parts []string, delta float64) error {
	head := parts[0]
	if len(parts) == 1 {
		current, ok := doc[head]
		if !ok {
			doc[head] = delta
			return nil
		}
		value, ok := toFloat(current)
		if !ok {
			return ErrNotNumeric
		}
		doc[head] = value + delta
		return nil
	}

	child, ok := doc[head]
	if !ok {
		nested := bson.M{}
		doc[head] = nested
		return incrementField(nested, parts[1:], delta)
	}
	switch typed := child.(type) {
	case bson.M:
		return incrementField(typed, parts[1:], delta)
	case map[string]any:
		return incrementField(bson.M(typed), parts[1:], delta)
	case bson.D:
		nested := typed.Map()
		if err := incrementField(nested, parts[1:], delta); err != nil {
			return err
		}
		doc[head] = nested
		return nil
	default:
		return ErrNotNumeric
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
