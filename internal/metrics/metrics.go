package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Signups      prometheus.Counter
	Logins       *prometheus.CounterVec
	Follows      *prometheus.CounterVec
	Likes        *prometheus.CounterVec
	Messages     *prometheus.CounterVec
	Unauthorized *prometheus.CounterVec
}

// New creates the counters and registers them with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Signups: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warbler_signups_total",
				Help: "Total number of accounts created",
			},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		Follows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_follows_total",
				Help: "Follow and unfollow operations",
			},
			[]string{"action"},
		),
		Likes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_likes_total",
				Help: "Like and unlike operations",
			},
			[]string{"action"},
		),
		Messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_messages_total",
				Help: "Messages created and deleted",
			},
			[]string{"action"},
		),
		Unauthorized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_unauthorized_total",
				Help: "Requests rejected for lack of a logged in user",
			},
			[]string{"path"},
		),
	}

	reg.MustRegister(m.Signups, m.Logins, m.Follows, m.Likes, m.Messages, m.Unauthorized)

	return m
}
