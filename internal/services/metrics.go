package services

import (
	"github.com/ad/insight-quest/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ProfilesCreated prometheus.Counter
	LoginRewards    prometheus.Counter
	XPGranted       *prometheus.CounterVec
	LevelUps        *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProfilesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insightquest_profiles_created_total",
			Help: "Progression records created for newly seen identities",
		}),
		LoginRewards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insightquest_login_rewards_total",
			Help: "Daily login rewards granted",
		}),
		XPGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insightquest_xp_granted_total",
			Help: "Experience points granted, by source kind",
		}, []string{"kind"}),
		LevelUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insightquest_level_ups_total",
			Help: "Level changes, by resulting stage",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.ProfilesCreated, m.LoginRewards, m.XPGranted, m.LevelUps)
	return m
}

func (m *Metrics) observe(created bool, events []models.Event) {
	if m == nil {
		return
	}
	if created {
		m.ProfilesCreated.Inc()
	}
	for _, ev := range events {
		switch ev.Kind {
		case models.EventLoginReward:
			m.LoginRewards.Inc()
			m.XPGranted.WithLabelValues("login").Add(float64(ev.Reward))
		case models.EventXPAwarded:
			if ev.Amount > 0 {
				m.XPGranted.WithLabelValues("award").Add(float64(ev.Amount))
			}
		case models.EventLevelUp:
			m.LevelUps.WithLabelValues(string(ev.Stage)).Inc()
		}
	}
}
