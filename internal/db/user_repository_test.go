package db

import (
	"errors"
	"testing"

	"github.com/ad/insight-quest/internal/models"
)

func TestUserRepository_LinkAndDisconnect(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	user := &models.User{ID: 42, FirstName: "Ada", Username: "ada"}
	if err := repo.CreateOrUpdate(user); err != nil {
		t.Fatalf("CreateOrUpdate failed: %v", err)
	}

	got, err := repo.GetByID(42)
	if err != nil {
		t.Fatal(err)
	}
	if got.HasSession() {
		t.Error("new user must not have a session")
	}

	if err := repo.LinkWallet(42, "wallet-a"); err != nil {
		t.Fatalf("LinkWallet failed: %v", err)
	}
	byWallet, err := repo.GetByWallet("wallet-a")
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if byWallet.ID != 42 || !byWallet.HasSession() {
		t.Errorf("GetByWallet = %+v", byWallet)
	}

	if err := repo.Disconnect(42); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByWallet("wallet-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("disconnected wallet should not resolve, got %v", err)
	}
	got, err = repo.GetByID(42)
	if err != nil {
		t.Fatal(err)
	}
	if got.WalletAddress != "wallet-a" || got.Connected {
		t.Errorf("disconnect should keep the wallet and clear the session: %+v", got)
	}
}

func TestUserRepository_UpdateKeepsWallet(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	if err := repo.CreateOrUpdate(&models.User{ID: 7, FirstName: "Old"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.LinkWallet(7, "wallet-b"); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateOrUpdate(&models.User{ID: 7, FirstName: "New"}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByID(7)
	if err != nil {
		t.Fatal(err)
	}
	if got.FirstName != "New" || got.WalletAddress != "wallet-b" || !got.Connected {
		t.Errorf("unexpected user after update: %+v", got)
	}
}

func TestUserRepository_UnknownUser(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	if _, err := repo.GetByID(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.LinkWallet(1, "w"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LinkWallet on unknown user: expected ErrNotFound, got %v", err)
	}
}

func TestChatStateRepository(t *testing.T) {
	repo := NewChatStateRepository(setupTestDB(t))

	state, err := repo.Get(5)
	if err != nil {
		t.Fatal(err)
	}
	if state.State != "" {
		t.Errorf("default state = %q", state.State)
	}

	if err := repo.Save(&models.ChatState{UserID: 5, State: "awaiting_wallet"}); err != nil {
		t.Fatal(err)
	}
	state, err = repo.Get(5)
	if err != nil {
		t.Fatal(err)
	}
	if state.State != "awaiting_wallet" {
		t.Errorf("state = %q", state.State)
	}
}
