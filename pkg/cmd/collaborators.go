package cmd

import (
	"log/slog"
	"time"

	"github.com/dukex/hireflow/pkg/actions"
	"github.com/dukex/hireflow/pkg/collaborators/breaker"
	"github.com/dukex/hireflow/pkg/collaborators/httpclient"
	"github.com/dukex/hireflow/pkg/collaborators/logsink"
)

// NewCollaborators returns HTTP collaborators for baseURL, or collaborators that only log
// when baseURL is empty.
func NewCollaborators(logger *slog.Logger, baseURL, token string, timeout time.Duration) (actions.Collaborators, error) {
	if baseURL == "" {
		logger.Warn("No collaborators URL configured, actions will only be logged")

		return logsink.New(logger).Collaborators(), nil
	}

	client, err := httpclient.New(logger, httpclient.Config{
		BaseURL: baseURL,
		Token:   token,
		Timeout: timeout,
		Breaker: breaker.DefaultConfig(),
	})
	if err != nil {
		return actions.Collaborators{}, err
	}

	return client.Collaborators(), nil
}
