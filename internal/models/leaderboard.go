package models

type LeaderboardEntry struct {
	Rank             int64  `json:"rank"`
	Identity         string `json:"identity"`
	Username         string `json:"username,omitempty"`
	AvatarURL        string `json:"avatarUrl"`
	ExperiencePoints int64  `json:"experiencePoints"`
	Level            int    `json:"level"`
	Stage            Stage  `json:"stage"`
}
