package storage

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ChangeFeed distributes collection-change signals to live-query
// subscribers. Durable adapters publish a signal after every write; Subscribe
// implementations re-run their query on each signal.
type ChangeFeed interface {
	// Changed announces that a collection's contents changed.
	Changed(ctx context.Context, collection string)
	// Watch invokes fn after every change to the collection until cancelled.
	Watch(ctx context.Context, collection string, fn func()) (cancel func(), err error)
}

// LocalChangeFeed is an in-process ChangeFeed for single-process deployments
// and tests.
type LocalChangeFeed struct {
	mu       sync.Mutex
	watchers map[string]map[int]func()
	nextID   int
}

// NewLocalChangeFeed creates an empty in-process change feed.
func NewLocalChangeFeed() *LocalChangeFeed {
	return &LocalChangeFeed{watchers: make(map[string]map[int]func())}
}

// Changed synchronously invokes every watcher registered for the collection.
func (f *LocalChangeFeed) Changed(_ context.Context, collection string) {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.watchers[collection]))
	for _, fn := range f.watchers[collection] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Watch registers fn for the collection and returns its cancel function.
func (f *LocalChangeFeed) Watch(_ context.Context, collection string, fn func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchers[collection] == nil {
		f.watchers[collection] = make(map[int]func())
	}
	id := f.nextID
	f.nextID++
	f.watchers[collection][id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.watchers[collection], id)
	}, nil
}

// RedisChangeFeed fans collection-change signals out across processes via
// Redis pub/sub channels (one channel per collection).
type RedisChangeFeed struct {
	rdb *redis.Client
}

// NewRedisChangeFeed creates a ChangeFeed over the given Redis client.
func NewRedisChangeFeed(rdb *redis.Client) *RedisChangeFeed {
	return &RedisChangeFeed{rdb: rdb}
}

func changeChannel(collection string) string {
	return fmt.Sprintf("docs:changed:%s", collection)
}

// Changed publishes a change signal. Publish failures are logged and
// swallowed: change signals are best-effort and never fail a primary write.
func (f *RedisChangeFeed) Changed(ctx context.Context, collection string) {
	if f.rdb == nil {
		return
	}
	if err := f.rdb.Publish(ctx, changeChannel(collection), "1").Err(); err != nil {
		log.Printf("change feed publish failed for %s: %v", collection, err)
	}
}

// Watch subscribes to the collection's channel and invokes fn per message
// until the cancel function is called or ctx ends.
func (f *RedisChangeFeed) Watch(ctx context.Context, collection string, fn func()) (func(), error) {
	if f.rdb == nil {
		return func() {}, nil
	}
	sub := f.rdb.Subscribe(ctx, changeChannel(collection))
	ch := sub.Channel()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in change feed watcher: %v\n%s", r, debug.Stack())
						}
					}()
					fn()
				}()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}, nil
}
