package models

type Stage string

const (
	StageSpark Stage = "Spark"
	StageGlow  Stage = "Glow"
	StageBlaze Stage = "Blaze"
	StageNova  Stage = "Nova"
	StageOrbit Stage = "Orbit"
)

// Stages lists every stage in progression order.
var Stages = []Stage{StageSpark, StageGlow, StageBlaze, StageNova, StageOrbit}

var stageEmojis = map[Stage]string{
	StageSpark: "✨",
	StageGlow:  "🌟",
	StageBlaze: "🔥",
	StageNova:  "💫",
	StageOrbit: "🌌",
}

// Ordinal returns the position of s in Stages, or -1 for an unknown stage.
func (s Stage) Ordinal() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) IsValid() bool {
	return s.Ordinal() >= 0
}

func (s Stage) Emoji() string {
	if emoji, ok := stageEmojis[s]; ok {
		return emoji
	}
	return "⭐"
}
