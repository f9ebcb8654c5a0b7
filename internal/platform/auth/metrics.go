package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authzDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fhirgate_authz_decisions_total",
		Help: "Authorization decisions by interaction kind and outcome.",
	},
	[]string{"interaction", "outcome"},
)

// finish records the decision outcome for an interaction kind and passes the
// error through unchanged.
func (s *TokenSession) finish(interaction string, err error) error {
	outcome := "allow"
	if err != nil {
		var ae *AuthError
		switch {
		case errors.As(err, &ae) && ae.Status == 401:
			outcome = "unauthenticated"
		case errors.As(err, &ae):
			outcome = "forbidden"
		default:
			outcome = "error"
		}
	}
	authzDecisions.WithLabelValues(interaction, outcome).Inc()
	return err
}
