package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	CommandStart      = "/start"
	CommandHelp       = "/help"
	CommandConnect    = "/connect"
	CommandDisconnect = "/disconnect"
	CommandMe         = "/me"
	CommandName       = "/name"
	CommandTop        = "/top"
	CommandAward      = "/award"
)

const helpText = `<b>InsightQuest</b>
/connect &lt;wallet&gt; - link your Solana wallet
/me - level, stage and streak
/name &lt;username&gt; - set the name shown on the leaderboard
/top - leaderboard
/disconnect - unlink this chat

Check in every day to grow your streak: 3 days in a row adds +50 XP, 7 days adds +100 XP.`

// parseCommand splits "/cmd@bot arg1 arg2" into "/cmd" and its arguments.
// Text that is not a command yields an empty command.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd, fields[1:]
}

type awardArgs struct {
	Address string
	Amount  int64
	Source  string
}

var errAwardUsage = errors.New("usage: /award <wallet> <amount> [source]")

func parseAwardArgs(args []string) (awardArgs, error) {
	if len(args) < 2 {
		return awardArgs{}, errAwardUsage
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return awardArgs{}, fmt.Errorf("invalid amount %q: %w", args[1], errAwardUsage)
	}
	source := "admin"
	if len(args) > 2 {
		source = strings.Join(args[2:], " ")
	}
	return awardArgs{Address: args[0], Amount: amount, Source: source}, nil
}
