package models

import "testing"

func TestStageOrdinal(t *testing.T) {
	for i, s := range Stages {
		if s.Ordinal() != i {
			t.Errorf("%s.Ordinal() = %d, want %d", s, s.Ordinal(), i)
		}
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Stage("Comet").IsValid() {
		t.Error("unknown stage must not be valid")
	}
	if Stage("Comet").Emoji() != "⭐" {
		t.Error("unknown stage should use the fallback emoji")
	}
	if StageBlaze.Emoji() != "🔥" {
		t.Errorf("Blaze emoji = %s", StageBlaze.Emoji())
	}
}
