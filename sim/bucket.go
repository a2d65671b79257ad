package sim

import (
	"fmt"
	"sync"
)

// TokenBucket is a capacity-bounded token counter.
// Invariant: 0 <= tokens <= capacity. The token generator deposits one token
// at a time and the transfer step debits a packet's whole requirement at once.
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	tokens   int
}

// NewTokenBucket creates an empty bucket. Panics on negative capacity.
func NewTokenBucket(capacity int) *TokenBucket {
	if capacity < 0 {
		panic(fmt.Sprintf("NewTokenBucket: capacity must be >= 0, got %d", capacity))
	}
	return &TokenBucket{capacity: capacity}
}

// Capacity returns the bucket size B.
func (b *TokenBucket) Capacity() int {
	return b.capacity
}

// Level returns the current number of tokens.
func (b *TokenBucket) Level() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Deposit adds one token. When the bucket is already full the token is
// dropped. Returns the resulting level.
func (b *TokenBucket) Deposit() (level int, dropped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens >= b.capacity {
		return b.tokens, true
	}
	b.tokens++
	return b.tokens, false
}

// TryDebit removes n tokens if the bucket holds at least n.
// Leaves the bucket untouched and returns ok=false otherwise.
func (b *TokenBucket) TryDebit(n int) (level int, ok bool) {
	if n < 0 {
		panic(fmt.Sprintf("TryDebit: n must be >= 0, got %d", n))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.tokens {
		return b.tokens, false
	}
	b.tokens -= n
	return b.tokens, true
}

// CanEverAdmit reports whether a packet needing n tokens can be served at all.
func (b *TokenBucket) CanEverAdmit(n int) bool {
	return n <= b.capacity
}
