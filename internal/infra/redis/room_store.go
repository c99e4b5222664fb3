package redis

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-night-service/internal/app"
)

const (
	markerQueue   = 256
	markerTimeout = 2 * time.Second
)

type markerOp struct {
	code   string
	hostID string
	del    bool
}

// RoomStore is a Redis-aware implementation of app.RoomStore.
// Rooms themselves stay in process memory; Redis only carries a liveness
// marker per code (value: host connection id) so operators can list live
// rooms with a key scan. Markers expire on their own if the process dies.
//
// Store methods are called from the dispatch loop and never touch the
// network: marker writes are queued and applied by Run.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	ops    chan markerOp

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		ops:    make(chan markerOp, markerQueue),
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) Put(room *app.Room) {
	s.mu.Lock()
	s.rooms[room.Code()] = room
	s.mu.Unlock()
	s.enqueue(markerOp{code: room.Code(), hostID: room.HostID()})
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	_, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()
	if ok {
		s.enqueue(markerOp{code: code, del: true})
	}
}

// All returns the live rooms ordered by code.
func (s *RoomStore) All() []*app.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out
}

// enqueue never blocks; a dropped marker is repaired by the next Refresh.
func (s *RoomStore) enqueue(op markerOp) {
	select {
	case s.ops <- op:
	default:
		log.Printf("room marker queue full, dropping update for %s", op.code)
	}
}

// Run applies queued marker writes and refreshes markers of live rooms every
// third of the TTL until ctx is done.
func (s *RoomStore) Run(ctx context.Context) {
	var tick <-chan time.Time
	if s.ttl > 0 {
		ticker := time.NewTicker(max(s.ttl/3, time.Second))
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-s.ops:
			if ctx.Err() != nil {
				return
			}
			if err := s.apply(ctx, op); err != nil {
				log.Printf("room marker %s: %v", op.code, err)
			}
		case <-tick:
			if err := s.Refresh(ctx); err != nil {
				log.Printf("refresh room markers: %v", err)
			}
		}
	}
}

func (s *RoomStore) apply(ctx context.Context, op markerOp) error {
	ctx, cancel := context.WithTimeout(ctx, markerTimeout)
	defer cancel()
	if op.del {
		return s.client.Del(ctx, s.key(op.code)).Err()
	}
	return s.client.Set(ctx, s.key(op.code), op.hostID, s.ttl).Err()
}

// Refresh rewrites the marker of every live room with a fresh TTL.
func (s *RoomStore) Refresh(ctx context.Context) error {
	rooms := s.All()
	if len(rooms) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, markerTimeout)
	defer cancel()
	pipe := s.client.Pipeline()
	for _, room := range rooms {
		pipe.Set(ctx, s.key(room.Code()), room.HostID(), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RoomStore) key(code string) string {
	return "quiz:room:" + code
}
