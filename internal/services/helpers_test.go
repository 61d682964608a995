package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"pos-ledger-api/internal/database"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := database.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fixedClock returns a settable clock for services with a now field.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fixedClock {
	return &fixedClock{t: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier captures events instead of delivering them.
type recordingNotifier struct {
	mu     sync.Mutex
	urls   []string
	events []NewOrderEvent
}

func (n *recordingNotifier) NotifyNewOrder(webhookURL string, event NewOrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, webhookURL)
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []NewOrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NewOrderEvent(nil), n.events...)
}

// panicNotifier simulates a broken notification channel.
type panicNotifier struct{}

func (panicNotifier) NotifyNewOrder(string, NewOrderEvent) {
	panic("notifier exploded")
}
