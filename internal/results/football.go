package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pickwire/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// FootballClient reads finished soccer matches from the football-data API.
type FootballClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewFootballClient creates a football-data API client. apiKey is required
// by the provider; callers skip soccer refreshes when it is unset.
func NewFootballClient(baseURL, apiKey string, timeout time.Duration) *FootballClient {
	return &FootballClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type footballResponse struct {
	Matches []struct {
		ID       int64  `json:"id"`
		UTCDate  string `json:"utcDate"`
		Status   string `json:"status"`
		HomeTeam struct {
			Name string `json:"name"`
		} `json:"homeTeam"`
		AwayTeam struct {
			Name string `json:"name"`
		} `json:"awayTeam"`
		Score struct {
			FullTime struct {
				Home *int `json:"home"`
				Away *int `json:"away"`
			} `json:"fullTime"`
		} `json:"score"`
	} `json:"matches"`
}

// Outcomes returns the terminal soccer matches on a date.
func (c *FootballClient) Outcomes(ctx context.Context, sport string, date time.Time) ([]models.RawOutcome, error) {
	day := date.Format("2006-01-02")
	url := fmt.Sprintf("%s/matches?dateFrom=%s&dateTo=%s", c.baseURL, day, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("football request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("football API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read football response: %w", err)
	}

	var payload footballResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode football response: %w", err)
	}

	var outcomes []models.RawOutcome
	for _, m := range payload.Matches {
		status, terminal := footballStatus(m.Status)
		if !terminal {
			continue
		}

		outcome := models.RawOutcome{
			Sport:        sport,
			HomeTeamName: m.HomeTeam.Name,
			AwayTeamName: m.AwayTeam.Name,
			Status:       status,
			GameDate:     day,
			ExternalID:   fmt.Sprintf("%d", m.ID),
			Provider:     "football-data",
		}

		if status == models.ResultFinal {
			if m.Score.FullTime.Home == nil || m.Score.FullTime.Away == nil {
				log.Warn().Int64("match_id", m.ID).Msg("Finished match missing full-time score, skipping")
				continue
			}
			outcome.HomeScore = *m.Score.FullTime.Home
			outcome.AwayScore = *m.Score.FullTime.Away
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func footballStatus(status string) (models.ResultStatus, bool) {
	switch status {
	case "FINISHED":
		return models.ResultFinal, true
	case "POSTPONED", "SUSPENDED":
		return models.ResultPostponed, true
	case "CANCELLED":
		return models.ResultCancelled, true
	}
	return "", false
}
