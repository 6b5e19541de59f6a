package progression

import (
	"math"

	"github.com/ad/insight-quest/internal/models"
)

// XPPerLevelUnit scales the quadratic level curve: level L starts at
// XPPerLevelUnit*(L-1)^2 experience points.
const XPPerLevelUnit = 100

type stageThreshold struct {
	maxLevel int
	stage    models.Stage
}

// Scanned lowest threshold first; the first entry whose maxLevel is not
// exceeded wins. Anything above the last entry is Orbit.
var stageThresholds = []stageThreshold{
	{maxLevel: 3, stage: models.StageSpark},
	{maxLevel: 7, stage: models.StageGlow},
	{maxLevel: 12, stage: models.StageBlaze},
	{maxLevel: 18, stage: models.StageNova},
}

// LevelFromXP returns floor(sqrt(xp/100)) + 1. Negative xp is treated as zero.
func LevelFromXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(isqrt(xp/XPPerLevelUnit)) + 1
}

// StageFromLevel maps a level to its display band.
func StageFromLevel(level int) models.Stage {
	for _, th := range stageThresholds {
		if level <= th.maxLevel {
			return th.stage
		}
	}
	return models.StageOrbit
}

// maxLevelBase is the largest n with XPPerLevelUnit*n*n <= math.MaxInt64.
var maxLevelBase = isqrt(math.MaxInt64 / XPPerLevelUnit)

// XPForLevel returns the experience points at which level begins. Levels
// beyond the int64 range of the curve report math.MaxInt64.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	if n > maxLevelBase {
		return math.MaxInt64
	}
	return XPPerLevelUnit * n * n
}

// LevelProgressFraction returns how far xp is between the start of its
// level and the start of the next one, in [0, 1).
func LevelProgressFraction(xp int64) float64 {
	if xp < 0 {
		xp = 0
	}
	level := LevelFromXP(xp)
	lo := XPForLevel(level)
	hi := XPForLevel(level + 1)
	if xp >= hi {
		// only reachable at math.MaxInt64, where the next level cannot start
		return math.Nextafter(1, 0)
	}
	return float64(xp-lo) / float64(hi-lo)
}

// isqrt returns floor(sqrt(n)) for n >= 0. The float estimate is corrected
// so large values do not round across a perfect square.
func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(n)))
	for r > 0 && r > n/r {
		r--
	}
	for r+1 <= n/(r+1) {
		r++
	}
	return r
}
