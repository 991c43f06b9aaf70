// Package results refreshes final scores from external providers, matches
// them against internal match rows, and grades the predictions riding on
// them.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"pickwire/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// leaguePaths maps sport slugs to scoreboard API league paths.
var leaguePaths = map[string]string{
	"nba":   "basketball/nba",
	"ncaam": "basketball/mens-college-basketball",
	"nfl":   "football/nfl",
	"ncaaf": "football/college-football",
	"mlb":   "baseball/mlb",
	"nhl":   "hockey/nhl",
}

// ScoreboardClient reads finished games from the public scoreboard API used
// for US team sports.
type ScoreboardClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewScoreboardClient creates a scoreboard API client.
func NewScoreboardClient(baseURL string, timeout time.Duration) *ScoreboardClient {
	return &ScoreboardClient{
		baseURL:    baseURL,
		maxRetries: 3,
		retryDelay: 1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// scoreboardResponse mirrors the slice of the scoreboard payload we read.
type scoreboardResponse struct {
	Events []struct {
		ID     string `json:"id"`
		Status struct {
			Type struct {
				Name      string `json:"name"`
				Completed bool   `json:"completed"`
			} `json:"type"`
		} `json:"status"`
		Competitions []struct {
			Competitors []struct {
				HomeAway string `json:"homeAway"`
				Score    string `json:"score"`
				Team     struct {
					DisplayName string `json:"displayName"`
				} `json:"team"`
			} `json:"competitors"`
		} `json:"competitions"`
	} `json:"events"`
}

// Outcomes returns the terminal games for a sport on a date. In-progress and
// scheduled games are not reported.
func (c *ScoreboardClient) Outcomes(ctx context.Context, sport string, date time.Time) ([]models.RawOutcome, error) {
	league, ok := leaguePaths[sport]
	if !ok {
		return nil, fmt.Errorf("no scoreboard league for sport %q", sport)
	}

	url := fmt.Sprintf("%s/%s/scoreboard?dates=%s", c.baseURL, league, date.Format("20060102"))
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var resp scoreboardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode scoreboard response: %w", err)
	}

	gameDate := date.Format("2006-01-02")
	var outcomes []models.RawOutcome

	for _, event := range resp.Events {
		status, terminal := scoreboardStatus(event.Status.Type.Name, event.Status.Type.Completed)
		if !terminal {
			continue
		}
		if len(event.Competitions) == 0 {
			continue
		}

		outcome := models.RawOutcome{
			Sport:      sport,
			Status:     status,
			GameDate:   gameDate,
			ExternalID: event.ID,
			Provider:   "scoreboard",
		}

		valid := true
		for _, comp := range event.Competitions[0].Competitors {
			score, convErr := strconv.Atoi(comp.Score)
			if convErr != nil && status == models.ResultFinal {
				valid = false
				break
			}
			switch comp.HomeAway {
			case "home":
				outcome.HomeTeamName = comp.Team.DisplayName
				outcome.HomeScore = score
			case "away":
				outcome.AwayTeamName = comp.Team.DisplayName
				outcome.AwayScore = score
			}
		}

		if !valid || outcome.HomeTeamName == "" || outcome.AwayTeamName == "" {
			log.Warn().
				Str("sport", sport).
				Str("event_id", event.ID).
				Msg("Skipping malformed scoreboard event")
			continue
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func scoreboardStatus(name string, completed bool) (models.ResultStatus, bool) {
	switch name {
	case "STATUS_POSTPONED":
		return models.ResultPostponed, true
	case "STATUS_CANCELED":
		return models.ResultCancelled, true
	case "STATUS_FINAL":
		return models.ResultFinal, true
	}
	if completed {
		return models.ResultFinal, true
	}
	return "", false
}

// get performs a GET request with retry and exponential backoff.
func (c *ScoreboardClient) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying scoreboard request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("scoreboard request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if readErr != nil {
				return nil, fmt.Errorf("failed to read scoreboard response: %w", readErr)
			}
			return body, nil
		}

		lastErr = fmt.Errorf("scoreboard returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			// Client errors will not heal on retry.
			return nil, lastErr
		}
	}

	return nil, lastErr
}
