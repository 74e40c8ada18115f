package monitor

import (
	"sync"
	"time"
)

// RateLimiter - бюджет вызовов внешнего API по фиксированному окну.
// Окно не скользящее: счетчик обнуляется по истечении окна целиком,
// поэтому на границе возможен всплеск до 2x лимита. Осознанный размен
// точности на простоту.
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	callCount   int
	windowStart time.Time

	now func() time.Time // подменяется в тестах
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:       limit,
		window:      window,
		windowStart: time.Now(),
		now:         time.Now,
	}
}

// TryAcquire занимает один вызов из бюджета. false - бюджет окна исчерпан,
// счетчик при этом не растет.
func (l *RateLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfElapsed()
	if l.callCount >= l.limit {
		return false
	}
	l.callCount++
	return true
}

// Used - занятая часть бюджета в текущем окне
func (l *RateLimiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfElapsed()
	return l.callCount
}

// Limit - размер бюджета на окно
func (l *RateLimiter) Limit() int {
	return l.limit
}

// caller держит l.mu
func (l *RateLimiter) resetIfElapsed() {
	now := l.now()
	if now.Sub(l.windowStart) >= l.window {
		l.callCount = 0
		l.windowStart = now
	}
}
