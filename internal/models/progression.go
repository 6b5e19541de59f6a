package models

import "time"

// UserProgression is the gamification state stored per identity.
// Level and Stage are derived from ExperiencePoints and must only be
// written through the progression package.
type UserProgression struct {
	Identity         string    `json:"identity"`
	Username         string    `json:"username,omitempty"`
	ExperiencePoints int64     `json:"experiencePoints"`
	Level            int       `json:"level"`
	Stage            Stage     `json:"stage"`
	LastLoginDate    *Date     `json:"lastLoginDate,omitempty"`
	LoginStreak      int       `json:"loginStreak"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// LoggedInOn reports whether the last login happened on day.
func (p *UserProgression) LoggedInOn(day Date) bool {
	return p.LastLoginDate != nil && *p.LastLoginDate == day
}
