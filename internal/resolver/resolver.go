// Package resolver maintains the in-memory alias index over canonical teams
// and resolves free-text team names from scraped pages to team ids.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pickwire/ingestion/internal/metrics"
	"pickwire/ingestion/internal/models"
	"pickwire/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// teamStore is the slice of the database the resolver needs. Satisfied by
// *repository.TeamRepository.
type teamStore interface {
	List(ctx context.Context) ([]*models.Team, error)
	ListAliases(ctx context.Context) ([]*models.TeamAlias, error)
	Create(ctx context.Context, team *models.Team) error
	CreateAlias(ctx context.Context, alias string, teamID int64) error
}

// Resolver resolves raw team names to canonical team ids through an
// RWMutex-guarded alias index. Reads never block on reads; LoadAliases swaps
// the whole map atomically so no caller observes a partial view.
type Resolver struct {
	teams        teamStore
	curatedSport string

	mu    sync.RWMutex
	index map[string]int64
}

// New creates a resolver. curatedSport names the one sport whose registry is
// hand-maintained: unknown names in it stay unresolved instead of being
// auto-created.
func New(teams *repository.TeamRepository, curatedSport string) *Resolver {
	return &Resolver{
		teams:        teams,
		curatedSport: strings.ToLower(curatedSport),
		index:        make(map[string]int64),
	}
}

// newWithStore is the test seam.
func newWithStore(teams teamStore, curatedSport string) *Resolver {
	return &Resolver{
		teams:        teams,
		curatedSport: strings.ToLower(curatedSport),
		index:        make(map[string]int64),
	}
}

// LoadAliases rebuilds the alias index from every team's lowercase full name
// and abbreviation plus every explicit alias row, then replaces the previous
// mapping in one swap.
func (r *Resolver) LoadAliases(ctx context.Context) error {
	teams, err := r.teams.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load teams: %w", err)
	}

	aliases, err := r.teams.ListAliases(ctx)
	if err != nil {
		return fmt.Errorf("failed to load team aliases: %w", err)
	}

	index := make(map[string]int64, len(teams)*2+len(aliases))
	for _, team := range teams {
		index[normalize(team.Name)] = team.ID
		index[normalize(team.Abbreviation)] = team.ID
	}
	for _, alias := range aliases {
		index[normalize(alias.Alias)] = alias.TeamID
	}

	r.mu.Lock()
	r.index = index
	r.mu.Unlock()

	metrics.AliasCacheSize.Set(float64(len(index)))
	log.Info().
		Int("teams", len(teams)).
		Int("aliases", len(aliases)).
		Int("index_size", len(index)).
		Msg("Team alias cache loaded")

	return nil
}

// Resolve returns the team id for an exact case-insensitive, trimmed match.
// No fuzzy matching.
func (r *Resolver) Resolve(rawName string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.index[normalize(rawName)]
	return id, ok
}

// ResolveOrCreate resolves rawName, auto-creating an unknown team for every
// sport except the curated one. A created team is inserted into the live
// index before returning so subsequent calls in the same process see it
// immediately.
func (r *Resolver) ResolveOrCreate(ctx context.Context, rawName, sport string) (int64, bool, error) {
	if id, ok := r.Resolve(rawName); ok {
		return id, true, nil
	}

	if strings.ToLower(sport) == r.curatedSport {
		return 0, false, nil
	}

	name := strings.TrimSpace(rawName)
	if name == "" {
		return 0, false, nil
	}

	team := &models.Team{
		Name:         name,
		Abbreviation: abbreviate(name),
		Sport:        strings.ToLower(sport),
	}

	if err := r.teams.Create(ctx, team); err != nil {
		return 0, false, fmt.Errorf("failed to auto-create team %q: %w", name, err)
	}
	if err := r.teams.CreateAlias(ctx, normalize(name), team.ID); err != nil {
		return 0, false, fmt.Errorf("failed to create alias for team %q: %w", name, err)
	}

	r.mu.Lock()
	r.index[normalize(team.Name)] = team.ID
	r.index[normalize(team.Abbreviation)] = team.ID
	r.mu.Unlock()

	metrics.TeamsAutoCreatedTotal.WithLabelValues(team.Sport).Inc()
	log.Info().
		Int64("team_id", team.ID).
		Str("name", team.Name).
		Str("sport", team.Sport).
		Msg("Team auto-created")

	return team.ID, true, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// abbreviate derives a stable uppercase code from a team name for
// auto-created teams: word initials for multi-word names, a three-letter
// prefix otherwise.
func abbreviate(name string) string {
	words := strings.Fields(name)
	if len(words) >= 2 {
		var b strings.Builder
		for i, w := range words {
			if i == 3 {
				break
			}
			b.WriteByte(w[0])
		}
		return strings.ToUpper(b.String())
	}

	if len(name) > 3 {
		name = name[:3]
	}
	return strings.ToUpper(name)
}
