package progression

import (
	"math"
	"testing"

	"github.com/ad/insight-quest/internal/models"
	"pgregory.net/rapid"
)

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{900, 4},
		{10000, 11},
		{-50, 1},
	}
	for _, tt := range tests {
		if got := LevelFromXP(tt.xp); got != tt.want {
			t.Errorf("LevelFromXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestLevelFromXP_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(0, math.MaxInt64/2).Draw(t, "a")
		b := rapid.Int64Range(0, math.MaxInt64/2).Draw(t, "b")
		if a > b {
			a, b = b, a
		}

		la, lb := LevelFromXP(a), LevelFromXP(b)
		if la < 1 {
			t.Fatalf("LevelFromXP(%d) = %d, must be >= 1", a, la)
		}
		if la > lb {
			t.Fatalf("LevelFromXP not monotonic: %d -> %d, %d -> %d", a, la, b, lb)
		}

		// Level L covers exactly [XPForLevel(L), XPForLevel(L+1)).
		if a < XPForLevel(la) || a >= XPForLevel(la+1) {
			t.Fatalf("xp %d outside its level %d range", a, la)
		}
	})
}

func TestStageFromLevel_Boundaries(t *testing.T) {
	tests := []struct {
		level int
		want  models.Stage
	}{
		{1, models.StageSpark},
		{3, models.StageSpark},
		{4, models.StageGlow},
		{7, models.StageGlow},
		{8, models.StageBlaze},
		{12, models.StageBlaze},
		{13, models.StageNova},
		{18, models.StageNova},
		{19, models.StageOrbit},
		{500, models.StageOrbit},
	}
	for _, tt := range tests {
		if got := StageFromLevel(tt.level); got != tt.want {
			t.Errorf("StageFromLevel(%d) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestStageFromLevel_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(-10, 1000).Draw(t, "a")
		b := rapid.IntRange(-10, 1000).Draw(t, "b")
		if a > b {
			a, b = b, a
		}

		sa, sb := StageFromLevel(a), StageFromLevel(b)
		if !sa.IsValid() || !sb.IsValid() {
			t.Fatalf("stage outside enumeration: %q, %q", sa, sb)
		}
		if sa.Ordinal() > sb.Ordinal() {
			t.Fatalf("stage order decreased: level %d -> %s, level %d -> %s", a, sa, b, sb)
		}
	})
}

func TestLevelProgressFraction(t *testing.T) {
	tests := []struct {
		xp   int64
		want float64
	}{
		{0, 0},
		{50, 0.5},
		{100, 0},
		{250, 0.5},
		{400, 0},
	}
	for _, tt := range tests {
		if got := LevelProgressFraction(tt.xp); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("LevelProgressFraction(%d) = %v, want %v", tt.xp, got, tt.want)
		}
	}
}

func TestLevelProgressFraction_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xp := rapid.Int64Range(0, 1_000_000_000).Draw(t, "xp")
		f := LevelProgressFraction(xp)
		if f < 0 || f >= 1 {
			t.Fatalf("LevelProgressFraction(%d) = %v, want within [0, 1)", xp, f)
		}
	})
}

func TestXPForLevel_TopOfCurve(t *testing.T) {
	top := LevelFromXP(math.MaxInt64)
	if got := XPForLevel(top); got <= XPForLevel(top-1) || LevelFromXP(got) != top {
		t.Errorf("XPForLevel(%d) = %d", top, got)
	}
	for _, level := range []int{top + 1, top + 1000, math.MaxInt32, math.MaxInt} {
		if got := XPForLevel(level); got != math.MaxInt64 {
			t.Errorf("XPForLevel(%d) = %d, want %d", level, got, int64(math.MaxInt64))
		}
	}
}

func TestXPForLevel_Monotonic_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(1, math.MaxInt).Draw(t, "a")
		b := rapid.IntRange(a, math.MaxInt).Draw(t, "b")
		if XPForLevel(a) > XPForLevel(b) {
			t.Fatalf("XPForLevel(%d)=%d > XPForLevel(%d)=%d", a, XPForLevel(a), b, XPForLevel(b))
		}
		if XPForLevel(a) < 0 {
			t.Fatalf("XPForLevel(%d) negative", a)
		}
	})
}

func TestLevelProgressFraction_FullRange_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xp := rapid.Int64Range(0, math.MaxInt64).Draw(t, "xp")
		f := LevelProgressFraction(xp)
		if f < 0 || f >= 1 {
			t.Fatalf("LevelProgressFraction(%d) = %v, want within [0, 1)", xp, f)
		}
	})
	if f := LevelProgressFraction(math.MaxInt64); f < 0 || f >= 1 {
		t.Errorf("LevelProgressFraction(MaxInt64) = %v", f)
	}
}

func TestIsqrt_PerfectSquares(t *testing.T) {
	for _, n := range []int64{0, 1, 4, 9, 1 << 40, 3037000499 * 3037000499} {
		r := isqrt(n)
		if r*r != n {
			t.Errorf("isqrt(%d) = %d", n, r)
		}
		if n > 0 && isqrt(n-1) != r-1 {
			t.Errorf("isqrt(%d) = %d, want %d", n-1, isqrt(n-1), r-1)
		}
	}
}
