package db

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ad/insight-quest/internal/models"
	"github.com/ad/insight-quest/internal/progression"
)

var testNow = time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)

func noop(p models.UserProgression) (models.UserProgression, []models.Event) {
	return p, nil
}

func award(amount int64) Mutation {
	return func(p models.UserProgression) (models.UserProgression, []models.Event) {
		return progression.AwardXP(p, amount)
	}
}

func dailyLogin(day models.Date) Mutation {
	return func(p models.UserProgression) (models.UserProgression, []models.Event) {
		return progression.EvaluateDailyLogin(p, day)
	}
}

func TestProgressionRepository_GetMissing(t *testing.T) {
	repo := NewProgressionRepository(setupTestDB(t))

	_, err := repo.Get("nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProgressionRepository_ApplyCreatesInitialRecord(t *testing.T) {
	repo := NewProgressionRepository(setupTestDB(t))

	res, err := repo.Apply("wallet-a", "test", testNow, noop)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !res.Created {
		t.Error("expected Created for a new identity")
	}

	stored, err := repo.Get("wallet-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Level != 1 || stored.Stage != models.StageSpark || stored.LastLoginDate != nil {
		t.Errorf("unexpected initial record: %+v", stored)
	}
	if !stored.CreatedAt.Equal(testNow) {
		t.Errorf("created_at = %v, want %v", stored.CreatedAt, testNow)
	}

	res, err = repo.Apply("wallet-a", "test", testNow, noop)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created {
		t.Error("second Apply must not report Created")
	}
}

func TestProgressionRepository_ApplyPersistsLoginState(t *testing.T) {
	queue := setupTestDB(t)
	repo := NewProgressionRepository(queue)
	events := NewEventRepository(queue)
	day := models.DateOf(testNow)

	res, err := repo.Apply("wallet-a", "login", testNow, dailyLogin(day))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("expected reward and level-up events, got %+v", res.Events)
	}

	stored, err := repo.Get("wallet-a")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ExperiencePoints != 100 || stored.Level != 2 || stored.LoginStreak != 1 {
		t.Errorf("stored = %+v", stored)
	}
	if stored.LastLoginDate == nil || *stored.LastLoginDate != day {
		t.Errorf("last login = %v, want %v", stored.LastLoginDate, day)
	}

	logged, err := events.ListByIdentity("wallet-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logged) != 2 {
		t.Fatalf("expected 2 logged events, got %d", len(logged))
	}
	for _, ev := range logged {
		if ev.Source != "login" || ev.ID == "" {
			t.Errorf("logged event = %+v", ev)
		}
	}
}

func TestProgressionRepository_SameDayLoginWritesNothing(t *testing.T) {
	queue := setupTestDB(t)
	repo := NewProgressionRepository(queue)
	day := models.DateOf(testNow)

	if _, err := repo.Apply("wallet-a", "login", testNow, dailyLogin(day)); err != nil {
		t.Fatal(err)
	}
	later := testNow.Add(5 * time.Hour)
	res, err := repo.Apply("wallet-a", "login", later, dailyLogin(day))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Events) != 0 {
		t.Errorf("second login on the same day emitted %+v", res.Events)
	}
	if !res.Progression.UpdatedAt.Equal(testNow) {
		t.Errorf("updated_at moved to %v on a no-op", res.Progression.UpdatedAt)
	}

	count, err := NewEventRepository(queue).CountByKind(models.EventLoginReward)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("login rewards logged = %d, want 1", count)
	}
}

func TestProgressionRepository_ConcurrentLoginsRewardOnce(t *testing.T) {
	queue := setupTestDB(t)
	repo := NewProgressionRepository(queue)
	day := models.DateOf(testNow)

	var wg sync.WaitGroup
	var mu sync.Mutex
	rewarded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.Apply("wallet-a", "login", testNow, dailyLogin(day))
			if err != nil {
				t.Errorf("Apply failed: %v", err)
				return
			}
			if len(res.Events) > 0 {
				mu.Lock()
				rewarded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if rewarded != 1 {
		t.Fatalf("reward granted %d times, want 1", rewarded)
	}
	stored, err := repo.Get("wallet-a")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ExperiencePoints != 100 {
		t.Errorf("xp = %d, want 100", stored.ExperiencePoints)
	}
}

func TestProgressionRepository_TopAndRank(t *testing.T) {
	repo := NewProgressionRepository(setupTestDB(t))

	for identity, xp := range map[string]int64{"a": 500, "b": 900, "c": 500, "d": 10} {
		if _, err := repo.Apply(identity, "seed", testNow, award(xp)); err != nil {
			t.Fatal(err)
		}
	}

	top, err := repo.TopByXP(3)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, p := range top {
		got = append(got, p.Identity)
	}
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("top = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("top = %v, want %v", got, want)
		}
	}

	for identity, wantRank := range map[string]int64{"b": 1, "a": 2, "c": 3, "d": 4} {
		rank, err := repo.RankOf(identity)
		if err != nil {
			t.Fatal(err)
		}
		if rank != wantRank {
			t.Errorf("RankOf(%s) = %d, want %d", identity, rank, wantRank)
		}
	}

	if _, err := repo.RankOf("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown identity, got %v", err)
	}
}

func TestProgressionRepository_RepairDerived(t *testing.T) {
	queue := setupTestDB(t)
	repo := NewProgressionRepository(queue)

	if _, err := repo.Apply("ok", "seed", testNow, award(400)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Apply("broken", "seed", testNow, award(4000)); err != nil {
		t.Fatal(err)
	}
	if _, err := queue.DB().Exec(`UPDATE progressions SET level = 1, stage = 'Orbit' WHERE identity = 'broken'`); err != nil {
		t.Fatal(err)
	}

	fixed, err := repo.RepairDerived(testNow)
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 1 {
		t.Errorf("repaired %d rows, want 1", fixed)
	}

	p, err := repo.Get("broken")
	if err != nil {
		t.Fatal(err)
	}
	if p.Level != 7 || p.Stage != models.StageGlow {
		t.Errorf("repaired record = %+v", p)
	}

	all, err := repo.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("GetAll returned %d records", len(all))
	}
}
