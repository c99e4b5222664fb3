package app

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"time"
)

// CodeAlphabet omits I, L and O so codes are easy to read aloud and type.
const CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	codeLength      = 4
	maxCodeAttempts = 1000
)

// ErrNoFreeCode is returned when no unused room code could be generated.
var ErrNoFreeCode = errors.New("no free room code")

// RoomStore abstracts where live rooms are kept (in-memory, Redis-marked, etc).
type RoomStore interface {
	Put(room *Room)
	Get(code string) (*Room, bool)
	Delete(code string)
	All() []*Room
}

// CodeGenerator produces candidate room codes.
type CodeGenerator func() string

// RandomCode draws a code from CodeAlphabet using crypto/rand.
func RandomCode() string {
	out := make([]byte, codeLength)
	max := big.NewInt(int64(len(CodeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out[i] = CodeAlphabet[n.Int64()]
	}
	return string(out)
}

// Registry owns room creation and deletion; it is the only writer of the store.
type Registry struct {
	store RoomStore
	codes CodeGenerator
	seq   uint64

	// hosted indexes room codes by host connection.
	hosted map[string]map[string]struct{}
}

func NewRegistry(store RoomStore, codes CodeGenerator) *Registry {
	if codes == nil {
		codes = RandomCode
	}
	return &Registry{store: store, codes: codes, hosted: make(map[string]map[string]struct{})}
}

// CreateRoom registers a lobby room hosted by hostID under a fresh code.
func (r *Registry) CreateRoom(hostID string, now time.Time) (*Room, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := r.codes()
		if _, taken := r.store.Get(code); taken {
			continue
		}
		r.seq++
		room := newRoom(r.seq, code, hostID, now)
		r.store.Put(room)
		if r.hosted[hostID] == nil {
			r.hosted[hostID] = make(map[string]struct{})
		}
		r.hosted[hostID][code] = struct{}{}
		return room, nil
	}
	return nil, ErrNoFreeCode
}

// Get looks a room up by code.
func (r *Registry) Get(code string) (*Room, bool) {
	return r.store.Get(code)
}

// Delete removes a room; the code may be reused afterwards.
func (r *Registry) Delete(code string) {
	if room, ok := r.store.Get(code); ok {
		codes := r.hosted[room.hostID]
		delete(codes, code)
		if len(codes) == 0 {
			delete(r.hosted, room.hostID)
		}
	}
	r.store.Delete(code)
}

// HostedBy returns the rooms hosted by the connection, ordered by code.
func (r *Registry) HostedBy(connID string) []*Room {
	var out []*Room
	for code := range r.hosted[connID] {
		if room, ok := r.store.Get(code); ok {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].code < out[j].code })
	return out
}

// Rooms returns every live room.
func (r *Registry) Rooms() []*Room {
	return r.store.All()
}
