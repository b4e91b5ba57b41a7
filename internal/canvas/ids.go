package canvas

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

type IDKind string

const (
	IDComponent  IDKind = "component"
	IDConnection IDKind = "connection"
)

func (k IDKind) prefix() string {
	if k == IDConnection {
		return "conn"
	}
	return "comp"
}

// IDAllocator hands out identifiers for components and connections.
// Implementations must be safe for concurrent use.
type IDAllocator interface {
	NewID(kind IDKind) string
}

// UUIDAllocator issues "comp-<uuid>" / "conn-<uuid>" ids backed by random v4 UUIDs.
type UUIDAllocator struct{}

func (UUIDAllocator) NewID(kind IDKind) string {
	return kind.prefix() + "-" + uuid.NewString()
}

// SequenceAllocator issues short, ordered ids ("comp-1-3f2a9c1e") scoped to one project.
// The random suffix keeps ids from two processes editing the same project apart.
type SequenceAllocator struct {
	mu   sync.Mutex
	next map[IDKind]uint64
}

func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{next: map[IDKind]uint64{}}
}

func (a *SequenceAllocator) NewID(kind IDKind) string {
	a.mu.Lock()
	a.next[kind]++
	n := a.next[kind]
	a.mu.Unlock()
	tie := uuid.New()
	return kind.prefix() + "-" + strconv.FormatUint(n, 10) + "-" + tie.String()[:8]
}
