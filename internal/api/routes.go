// Package api exposes the progression service to the web client over HTTP.
package api

import (
	"crypto/subtle"
	"errors"

	"github.com/ad/insight-quest/internal/models"
	"github.com/ad/insight-quest/internal/progression"
	"github.com/ad/insight-quest/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	adminTokenHeader = "X-Admin-Token"
	maxLimit         = 100
	defaultEventsMax = 20
)

type progressionView struct {
	models.UserProgression
	AvatarURL   string  `json:"avatarUrl"`
	Progress    float64 `json:"progress"`
	NextLevelXP int64   `json:"nextLevelXP"`
	Rank        int64   `json:"rank,omitempty"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

type awardRequest struct {
	Amount int64  `json:"amount"`
	Source string `json:"source"`
}

func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "insightquest",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
}

func SetupRoutes(app *fiber.App, svc *services.ProgressionService, adminToken string, leaderboardSize int) {
	log := logrus.WithField("component", "api")

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	group := app.Group("/api")
	group.Get("/progression/:address", walletParam, func(c *fiber.Ctx) error {
		identity := c.Locals("identity").(string)
		p, err := svc.Get(c.UserContext(), identity)
		if err != nil {
			log.WithError(err).WithField("identity", identity).Error("[API] load progression failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progression",
				"cause": err.Error(),
			})
		}

		view := progressionView{
			UserProgression: *p,
			AvatarURL:       models.AvatarURL(p.Identity),
			Progress:        progression.LevelProgressFraction(p.ExperiencePoints),
			NextLevelXP:     progression.XPForLevel(p.Level + 1),
		}
		rank, err := svc.Rank(c.UserContext(), identity)
		if err == nil {
			view.Rank = rank
		} else if !errors.Is(err, services.ErrNotRanked) {
			log.WithError(err).WithField("identity", identity).Warn("[API] rank lookup failed")
		}
		return c.JSON(view)
	})

	group.Post("/progression/:address/login", walletParam, func(c *fiber.Ctx) error {
		identity := c.Locals("identity").(string)
		out, err := svc.DailyLogin(c.UserContext(), identity)
		if err != nil {
			log.WithError(err).WithField("identity", identity).Error("[API] daily login failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to evaluate daily login",
				"cause": err.Error(),
			})
		}
		return c.JSON(out)
	})

	group.Put("/progression/:address/username", walletParam, func(c *fiber.Ctx) error {
		identity := c.Locals("identity").(string)
		var req usernameRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		p, err := svc.SetUsername(c.UserContext(), identity, req.Username)
		if errors.Is(err, models.ErrInvalidUsername) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid username",
				"cause": err.Error(),
			})
		}
		if err != nil {
			log.WithError(err).WithField("identity", identity).Error("[API] username update failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update username",
				"cause": err.Error(),
			})
		}
		return c.JSON(p)
	})

	group.Post("/progression/:address/xp", walletParam, requireAdmin(adminToken), func(c *fiber.Ctx) error {
		identity := c.Locals("identity").(string)
		var req awardRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		out, err := svc.AwardXP(c.UserContext(), identity, req.Amount, req.Source)
		if err != nil {
			log.WithError(err).WithField("identity", identity).Error("[API] award failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to award XP",
				"cause": err.Error(),
			})
		}
		return c.JSON(out)
	})

	group.Get("/progression/:address/events", walletParam, func(c *fiber.Ctx) error {
		identity := c.Locals("identity").(string)
		limit, ok := parseLimit(c, defaultEventsMax)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be between 1 and 100"})
		}
		events, err := svc.History(c.UserContext(), identity, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load events",
				"cause": err.Error(),
			})
		}
		if events == nil {
			events = []*models.StoredEvent{}
		}
		return c.JSON(fiber.Map{"events": events})
	})

	group.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, ok := parseLimit(c, leaderboardSize)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be between 1 and 100"})
		}
		entries, err := svc.Leaderboard(c.UserContext(), limit)
		if err != nil {
			log.WithError(err).Error("[API] leaderboard failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}
		if entries == nil {
			entries = []models.LeaderboardEntry{}
		}
		return c.JSON(fiber.Map{"entries": entries})
	})
}

func walletParam(c *fiber.Ctx) error {
	identity, err := services.ValidateWalletAddress(c.Params("address"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid wallet address",
			"cause": err.Error(),
		})
	}
	c.Locals("identity", identity)
	return c.Next()
}

func requireAdmin(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "XP awards are disabled"})
		}
		given := c.Get(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid admin token"})
		}
		return c.Next()
	}
}

func parseLimit(c *fiber.Ctx, def int) (int, bool) {
	limit := c.QueryInt("limit", def)
	if limit < 1 || limit > maxLimit {
		return 0, false
	}
	return limit, true
}
