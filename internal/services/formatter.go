package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/ad/insight-quest/internal/models"
	"github.com/ad/insight-quest/internal/progression"
)

const progressBarWidth = 10

func FormatBold(text string) string {
	return fmt.Sprintf("<b>%s</b>", html.EscapeString(text))
}

func FormatCode(text string) string {
	return fmt.Sprintf("<code>%s</code>", html.EscapeString(text))
}

func FormatStage(stage models.Stage) string {
	return stage.Emoji() + " " + string(stage)
}

// FormatEvent renders a single progression event as Telegram HTML.
func FormatEvent(ev models.Event) string {
	switch ev.Kind {
	case models.EventLoginReward:
		if ev.Streak > 1 {
			return fmt.Sprintf("🔥 %s\nYou've logged in %d days in a row! Keep it up for more rewards.",
				FormatBold(fmt.Sprintf("%d-Day Streak! +%d XP", ev.Streak, ev.Reward)), ev.Streak)
		}
		return fmt.Sprintf("🎁 %s\nWelcome back! You've earned %d XP for logging in today.",
			FormatBold(fmt.Sprintf("Daily Login Reward! +%d XP", ev.Reward)), ev.Reward)
	case models.EventXPAwarded:
		if ev.Amount < 0 {
			return "⚡ " + FormatBold(fmt.Sprintf("%d XP", ev.Amount))
		}
		return "⚡ " + FormatBold(fmt.Sprintf("+%d XP earned!", ev.Amount))
	case models.EventLevelUp:
		return fmt.Sprintf("🎉 %s You reached level %d\nYou're now at the %s stage.",
			FormatBold("Level Up!"), ev.NewLevel, FormatStage(ev.Stage))
	default:
		return ""
	}
}

func FormatEvents(events []models.Event) string {
	var parts []string
	for _, ev := range events {
		if text := FormatEvent(ev); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func ProgressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// FormatProfile renders the /me card. rank <= 0 hides the rank line.
func FormatProfile(p models.UserProgression, rank int64) string {
	fraction := progression.LevelProgressFraction(p.ExperiencePoints)

	var sb strings.Builder
	if p.Username != "" {
		sb.WriteString("👤 " + FormatBold(p.Username) + "\n")
	}
	sb.WriteString(fmt.Sprintf("%s · Level %d\n", FormatBold(FormatStage(p.Stage)), p.Level))
	sb.WriteString(fmt.Sprintf("Wallet: %s\n", FormatCode(models.ShortenAddress(p.Identity, 4))))
	sb.WriteString(fmt.Sprintf("XP: %d (next level at %d)\n", p.ExperiencePoints, progression.XPForLevel(p.Level+1)))
	sb.WriteString(fmt.Sprintf("%s %d%%\n", ProgressBar(fraction, progressBarWidth), int(fraction*100)))
	sb.WriteString(fmt.Sprintf("🔥 Streak: %d %s", p.LoginStreak, pluralDays(p.LoginStreak)))
	if rank > 0 {
		sb.WriteString(fmt.Sprintf("\n🏆 Rank: #%d", rank))
	}
	sb.WriteString(fmt.Sprintf("\n🖼 <a href=\"%s\">Avatar</a>", html.EscapeString(models.AvatarURL(p.Identity))))
	return sb.String()
}

func FormatLeaderboard(entries []models.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "🏆 " + FormatBold("Leaderboard") + "\nNo players yet."
	}
	var sb strings.Builder
	sb.WriteString("🏆 " + FormatBold("Leaderboard"))
	for _, e := range entries {
		who := FormatCode(models.ShortenAddress(e.Identity, 4))
		if e.Username != "" {
			who = html.EscapeString(e.Username) + " (" + who + ")"
		}
		sb.WriteString(fmt.Sprintf("\n%d. %s · Lv %d %s · %d XP",
			e.Rank, who, e.Level, FormatStage(e.Stage), e.ExperiencePoints))
	}
	return sb.String()
}

// FormatWelcomeBack greets a returning player with their current stage.
func FormatWelcomeBack(stage models.Stage) string {
	return fmt.Sprintf("👋 %s\nYou're currently at the %s stage. Keep going!",
		FormatBold("Welcome back to InsightQuest!"), FormatStage(stage))
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
