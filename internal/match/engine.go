// Package match implements the cross-source entity-resolution engine. Given a
// processed record that could not be resolved by direct keys, it retrieves a
// bounded candidate set from the store, scores each candidate against weighted
// name/slug/date/company/genre signals, and decides whether the record
// auto-merges into an existing game, is held for review, or is rejected.
package match

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/logger"
	"github.com/ludocat/gamesync/internal/metrics"
	"github.com/ludocat/gamesync/internal/normalize"
	"github.com/ludocat/gamesync/internal/repository"
)

// Config contains the matching thresholds and weights.
type Config struct {
	MatchThreshold   float64 // total score at or above which the top candidate auto-merges
	PendingThreshold float64 // total score at or above which the decision is held for review
	NameSimGate      float64 // continuous name similarity above which one strong signal suffices
	MaxCandidates    int
	RequiredTokens   int           // top name tokens that must all appear in a candidate's name
	DateWindow       time.Duration // candidate retrieval release-date window (half-width)
	CloseDate        time.Duration // release-date distance counting as a strong signal

	WeightName    float64
	WeightSlug    float64
	WeightDate    float64
	WeightCompany float64
	WeightGenre   float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:   0.6,
		PendingThreshold: 0.4,
		NameSimGate:      0.35,
		MaxCandidates:    50,
		RequiredTokens:   3,
		DateWindow:       5 * 365 * 24 * time.Hour,
		CloseDate:        365 * 24 * time.Hour,
		WeightName:       0.40,
		WeightSlug:       0.25,
		WeightDate:       0.15,
		WeightCompany:    0.12,
		WeightGenre:      0.08,
	}
}

// Signals are the boolean strong-match indicators gating candidate acceptance.
type Signals struct {
	SlugMatch      bool `json:"slugMatch"`
	ExactName      bool `json:"exactName"`
	DateProximity  bool `json:"dateProximity"`
	CompanyOverlap bool `json:"companyOverlap"`
}

// Count returns how many strong signals are set.
func (s Signals) Count() int {
	n := 0
	for _, b := range []bool{s.SlugMatch, s.ExactName, s.DateProximity, s.CompanyOverlap} {
		if b {
			n++
		}
	}
	return n
}

// Score is the per-candidate breakdown.
type Score struct {
	Name    float64 `json:"name"`
	NameSim float64 `json:"nameSim"` // continuous similarity used by the acceptance gate
	Slug    float64 `json:"slug"`
	Date    float64 `json:"date"`
	Company float64 `json:"company"`
	Genre   float64 `json:"genre"`
	Total   float64 `json:"total"`

	Signals        Signals  `json:"signals"`
	CompanyOverlap []string `json:"companyOverlapNames,omitempty"`
	GenreOverlap   float64  `json:"-"`
}

// Candidate pairs a game with its score.
type Candidate struct {
	Game  *domain.Game
	Score Score
}

// Result is the outcome of one evaluation.
type Result struct {
	Outcome   domain.MatchOutcome
	Reason    string
	Game      *domain.Game // winning candidate when Outcome is matched or pending
	Score     float64
	Signals   Signals
	Evaluated int
}

// Engine scores candidates and records every decision in the audit log.
type Engine struct {
	games repository.Game
	audit repository.Match
	cfg   Config
}

// NewEngine creates a new Engine
func NewEngine(games repository.Game, audit repository.Match, cfg Config) *Engine {
	return &Engine{games: games, audit: audit, cfg: cfg}
}

// Evaluate runs one matching decision for a record that resolved to nothing by
// direct keys. The record must carry its own source identifier.
func (e *Engine) Evaluate(ctx context.Context, record *domain.ProcessedRecord) (*Result, error) {
	log := logger.FromContext(ctx)

	extID := record.ExternalID()
	if extID == nil {
		return nil, fmt.Errorf("%w: record has no source identifier", domain.ErrValidation)
	}

	rn := normalize.Normalize(record.Name)
	ogn := normalize.Normalize(record.OGName)
	if ogn.Slug == "" {
		ogn = rn
	}

	candidates, err := e.retrieve(ctx, record, rn)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		result := &Result{Outcome: domain.MatchNoCandidate, Reason: domain.RejectNoCandidate}
		e.appendDecision(ctx, record, *extID, result, nil)
		return result, nil
	}

	scored := e.scoreAll(ctx, record, rn, ogn, candidates)

	// Acceptance gate: weak names need corroboration from two strong signals.
	var survivors []Candidate
	for _, c := range scored {
		required := 2
		if c.Score.NameSim >= e.cfg.NameSimGate {
			required = 1
		}
		if c.Score.Signals.Count() >= required {
			survivors = append(survivors, c)
		}
	}

	if len(survivors) == 0 {
		result := &Result{
			Outcome:   domain.MatchRejected,
			Reason:    domain.RejectInsufficientSignals,
			Evaluated: len(scored),
		}
		rank(scored)
		e.appendDecision(ctx, record, *extID, result, scored)
		return result, nil
	}

	rank(survivors)

	top := survivors[0]
	result := &Result{
		Game:      top.Game,
		Score:     top.Score.Total,
		Signals:   top.Score.Signals,
		Evaluated: len(scored),
	}

	switch {
	case top.Score.Total >= e.cfg.MatchThreshold:
		result.Outcome = domain.MatchMatched
	case top.Score.Total >= e.cfg.PendingThreshold:
		result.Outcome = domain.MatchPending
	default:
		result.Outcome = domain.MatchRejected
		result.Reason = domain.RejectLowScore
		result.Game = nil
	}

	// Post-hoc identifier-conflict check: the winner may have gained a
	// different identifier for this source since retrieval.
	if result.Outcome == domain.MatchMatched || result.Outcome == domain.MatchPending {
		if ownID := top.Game.ExternalID(record.Source); ownID != nil && *ownID != *extID {
			log.Warn("match rejected on identifier conflict",
				"source", record.Source,
				"external_id", *extID,
				"game_id", top.Game.ID,
				"conflicting_id", *ownID)
			result.Outcome = domain.MatchRejected
			result.Reason = domain.RejectIDConflict
			result.Game = nil
		}
	}

	e.appendDecision(ctx, record, *extID, result, survivors)
	return result, nil
}

// retrieve queries a bounded candidate set: games owned by the competing
// source only, excluding DLC, matching on slug or the top required name
// tokens, within the release-date window when both sides carry a date.
func (e *Engine) retrieve(ctx context.Context, record *domain.ProcessedRecord, rn normalize.Normalized) ([]domain.Game, error) {
	slug := record.Slug
	if slug == "" {
		slug = rn.Slug
	}

	q := repository.CandidateQuery{
		Source:         record.Source,
		Slug:           slug,
		RequiredTokens: requiredTokens(rn.Tokens, e.cfg.RequiredTokens),
		ReleaseDate:    record.ReleaseDate,
		DateWindow:     e.cfg.DateWindow,
		Limit:          e.cfg.MaxCandidates,
	}

	games, err := e.games.FindMatchCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("candidate retrieval failed: %w", err)
	}
	return games, nil
}

// rank orders candidates deterministically: score descending, stable
// tie-break on id. Applied before every audit append so the logged candidate
// list reads best-first.
func rank(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score.Total != cands[j].Score.Total {
			return cands[i].Score.Total > cands[j].Score.Total
		}
		return cands[i].Game.ID < cands[j].Game.ID
	})
}

// requiredTokens picks the first n tokens that must all appear in a
// candidate's name. Year tokens are optional bonus signals, never required.
func requiredTokens(tokens []string, n int) []string {
	var out []string
	for _, tok := range tokens {
		if normalize.IsYearToken(tok) {
			continue
		}
		out = append(out, tok)
		if len(out) == n {
			break
		}
	}
	return out
}

func (e *Engine) scoreAll(ctx context.Context, record *domain.ProcessedRecord, rn, ogn normalize.Normalized, games []domain.Game) []Candidate {
	log := logger.FromContext(ctx)

	recordCompanies := companyNames(record)
	recordGenres := recordGenres(record)

	scored := make([]Candidate, 0, len(games))
	for i := range games {
		g := &games[i]

		candCompanies, err := e.games.ListCompanyNames(ctx, g.ID)
		if err != nil {
			log.Warn("failed to load candidate companies", "game_id", g.ID, "error", err)
		}
		var candGenres []string
		if detail, err := e.games.GetDetail(ctx, g.ID); err != nil {
			log.Warn("failed to load candidate detail", "game_id", g.ID, "error", err)
		} else if detail != nil {
			candGenres = detail.Genres
		}

		score := e.score(record, rn, ogn, g, recordCompanies, candCompanies, recordGenres, candGenres)
		scored = append(scored, Candidate{Game: g, Score: score})
	}
	return scored
}

// score computes the weighted sub-scores for one candidate. All sub-score
// functions are symmetric in their two sides.
func (e *Engine) score(record *domain.ProcessedRecord, rn, ogn normalize.Normalized, g *domain.Game,
	recordCompanies, candCompanies, recordGenres, candGenres []string) Score {

	cn := normalize.Normalize(g.Name)
	cogn := normalize.Normalize(g.OGName)
	if cogn.Slug == "" {
		cogn = cn
	}

	nameBand, nameCont := stringSimilarity(rn, cn)
	ogBand, ogCont := stringSimilarity(ogn, cogn)
	nameScore := 0.6*math.Max(nameBand, nameCont) + 0.4*math.Max(ogBand, ogCont)
	nameSim := math.Max(nameCont, ogCont)

	slugScore, slugExact := slugSimilarity(record, rn, ogn, g)

	dateScore, dateDiff := dateProximity(record.ReleaseDate, g.ReleaseDate)

	overlap := nameIntersection(recordCompanies, candCompanies)
	companyScore := 0.0
	if len(overlap) > 0 {
		companyScore = 1.0
	}

	genreScore := tokenOverlap(recordGenres, candGenres)

	s := Score{
		Name:           nameScore,
		NameSim:        nameSim,
		Slug:           slugScore,
		Date:           dateScore,
		Company:        companyScore,
		Genre:          genreScore,
		CompanyOverlap: overlap,
	}
	s.Signals = Signals{
		SlugMatch:      slugExact,
		ExactName:      rn.Lower != "" && (rn.Lower == cn.Lower || ogn.Lower == cogn.Lower),
		DateProximity:  dateDiff >= 0 && dateDiff <= e.cfg.CloseDate,
		CompanyOverlap: len(overlap) > 0,
	}
	s.Total = e.cfg.WeightName*s.Name +
		e.cfg.WeightSlug*s.Slug +
		e.cfg.WeightDate*s.Date +
		e.cfg.WeightCompany*s.Company +
		e.cfg.WeightGenre*s.Genre
	return s
}

// stringSimilarity returns the band score and the continuous trigram score
// for two normalized names. The continuous score is the best of the raw and
// separator-stripped forms.
func stringSimilarity(a, b normalize.Normalized) (band, continuous float64) {
	band = bandScore(a.Lower, b.Lower)
	continuous = math.Max(
		trigramSimilarity(a.Lower, b.Lower),
		trigramSimilarity(a.Compact, b.Compact),
	)
	return band, continuous
}

// slugSimilarity scores the record's slugs against both candidate slugs and
// reports whether any pair matches exactly.
func slugSimilarity(record *domain.ProcessedRecord, rn, ogn normalize.Normalized, g *domain.Game) (float64, bool) {
	recordSlugs := dedupe(record.Slug, record.OGSlug, rn.Slug, ogn.Slug)
	candSlugs := dedupe(g.Slug, g.OGSlug)

	best := 0.0
	exact := false
	for _, rs := range recordSlugs {
		for _, cs := range candSlugs {
			if strings.EqualFold(rs, cs) {
				exact = true
			}
			score := math.Max(
				bandScore(strings.ToLower(rs), strings.ToLower(cs)),
				trigramSimilarity(strings.ToLower(rs), strings.ToLower(cs)),
			)
			best = math.Max(best, score)
		}
	}
	return best, exact
}

// dateProximity scores release-date distance. Scored only when both sides
// carry a date; diff is -1 when either side is missing.
func dateProximity(a, b *time.Time) (float64, time.Duration) {
	if a == nil || b == nil {
		return 0, -1
	}
	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	const horizon = 5 * 365 * 24 * time.Hour
	if diff >= horizon {
		return 0, diff
	}
	return 1 - float64(diff)/float64(horizon), diff
}

func companyNames(record *domain.ProcessedRecord) []string {
	names := make([]string, 0, len(record.Companies)+len(record.Matching.CompanySlugs))
	for _, c := range record.Companies {
		names = append(names, c.Name)
	}
	names = append(names, record.Matching.CompanySlugs...)
	return names
}

func recordGenres(record *domain.ProcessedRecord) []string {
	if len(record.Matching.Genres) > 0 {
		return record.Matching.Genres
	}
	if record.Detail != nil {
		return record.Detail.Genres
	}
	return nil
}

func dedupe(values ...string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}

// appendDecision writes the audit row. Audit failures are logged, never
// propagated: a decision must not fail because its log write did.
func (e *Engine) appendDecision(ctx context.Context, record *domain.ProcessedRecord, extID int64, result *Result, ranked []Candidate) {
	log := logger.FromContext(ctx)

	details := map[string]any{
		"evaluated": result.Evaluated,
	}
	if result.Game != nil {
		details["signals"] = result.Signals
	}

	const maxLogged = 5
	var logged []map[string]any
	for i, c := range ranked {
		if i == maxLogged {
			break
		}
		logged = append(logged, map[string]any{
			"gameId":         c.Game.ID,
			"score":          c.Score.Total,
			"name":           c.Score.Name,
			"slug":           c.Score.Slug,
			"date":           c.Score.Date,
			"company":        c.Score.Company,
			"genre":          c.Score.Genre,
			"companyOverlap": c.Score.CompanyOverlap,
		})
	}
	if logged != nil {
		details["candidates"] = logged
	}

	decision := &domain.MatchDecision{
		Source:     record.Source,
		ExternalID: extID,
		Outcome:    result.Outcome,
		Reason:     result.Reason,
		Score:      result.Score,
	}
	if result.Game != nil {
		decision.GameID = &result.Game.ID
	}
	decision.Details = details

	if err := e.audit.Append(ctx, decision); err != nil {
		log.Error("failed to append match decision", "source", record.Source, "external_id", extID, "error", err)
	}
	metrics.MatchDecisionsTotal.WithLabelValues(record.Source, string(result.Outcome)).Inc()

	log.Info("match decision",
		"source", record.Source,
		"external_id", extID,
		"outcome", result.Outcome,
		"reason", result.Reason,
		"score", result.Score,
		"evaluated", result.Evaluated)
}
