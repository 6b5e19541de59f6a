package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/ad/insight-quest/internal/db"
	"github.com/ad/insight-quest/internal/models"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	_ "modernc.org/sqlite"
)

func setupTestQueue(t *testing.T) *db.DBQueue {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.InitSchema(sqlDB); err != nil {
		t.Fatal(err)
	}
	queue := db.NewDBQueueForTest(sqlDB)
	t.Cleanup(func() {
		queue.Close()
		sqlDB.Close()
	})
	return queue
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []*bot.SendMessageParams
	failures int
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, params)
	return &tgmodels.Message{ID: len(f.sent)}, nil
}

func (f *fakeSender) messages() []*bot.SendMessageParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*bot.SendMessageParams(nil), f.sent...)
}

type publishedEvents struct {
	identity string
	events   []models.Event
}

type recordingSink struct {
	mu        sync.Mutex
	published []publishedEvents
	err       error
}

func (r *recordingSink) Publish(_ context.Context, identity string, _ models.UserProgression, events []models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, publishedEvents{identity: identity, events: events})
	return r.err
}

type failingLeaderboard struct {
	Leaderboard
	updates int
}

func (f *failingLeaderboard) Update(context.Context, models.UserProgression) error {
	f.updates++
	return errors.New("redis down")
}
