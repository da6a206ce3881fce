package game

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ludocat/gamesync/internal/domain"
	"github.com/ludocat/gamesync/internal/repository"
)

// FakeRepository is a stateful in-memory implementation of repository.Game for
// testing. It enforces the same uniqueness constraints as the real schema and
// returns the same typed errors, so upsert, orchestrator, and merge tests can
// exercise conflict paths without a database.
//
// Transactions snapshot the whole state on begin; Rollback restores it, so
// "no partial writes" assertions hold. This fake must remain in the game
// package to avoid import cycles; ingest and merge tests import it from here.
type FakeRepository struct {
	mu sync.Mutex

	nextGameID    int64
	nextReleaseID int64
	nextCompanyID int64

	games     map[int64]*domain.Game
	details   map[int64]*domain.GameDetail
	releases  map[int64]*domain.GameRelease
	companies map[int64]*domain.Company
	roles     map[domain.CompanyRole]bool

	// Optional hooks for fault injection. A non-nil returned error aborts the
	// operation before any state change.
	CreateHook func(g *domain.Game) error
	UpdateHook func(g *domain.Game) error
}

// NewFakeRepository creates an empty FakeRepository.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		games:     make(map[int64]*domain.Game),
		details:   make(map[int64]*domain.GameDetail),
		releases:  make(map[int64]*domain.GameRelease),
		companies: make(map[int64]*domain.Company),
		roles:     make(map[domain.CompanyRole]bool),
	}
}

// Seed inserts a game directly, bypassing constraints. Test setup only.
func (f *FakeRepository) Seed(g domain.Game) *domain.Game {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.ID == 0 {
		f.nextGameID++
		g.ID = f.nextGameID
	} else if g.ID > f.nextGameID {
		f.nextGameID = g.ID
	}
	f.games[g.ID] = &g
	return &g
}

// SeedCompany inserts a company directly. Test setup only.
func (f *FakeRepository) SeedCompany(c domain.Company) *domain.Company {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == 0 {
		f.nextCompanyID++
		c.ID = f.nextCompanyID
	}
	f.companies[c.ID] = &c
	return &c
}

// SeedRelease inserts a release directly. Test setup only.
func (f *FakeRepository) SeedRelease(r domain.GameRelease) *domain.GameRelease {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == 0 {
		f.nextReleaseID++
		r.ID = f.nextReleaseID
	}
	f.releases[r.ID] = &r
	return &r
}

// SeedRole inserts a company role directly. Test setup only.
func (f *FakeRepository) SeedRole(role domain.CompanyRole) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[role] = true
}

// Games returns a snapshot of all stored games ordered by id.
func (f *FakeRepository) Games() []domain.Game {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Game, 0, len(f.games))
	for _, g := range f.games {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Releases returns a snapshot of all stored releases ordered by id.
func (f *FakeRepository) Releases() []domain.GameRelease {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.GameRelease, 0, len(f.releases))
	for _, r := range f.releases {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Detail returns the stored detail row for a game, or nil.
func (f *FakeRepository) Detail(gameID int64) *domain.GameDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.details[gameID]; ok {
		cp := *d
		return &cp
	}
	return nil
}

// Roles returns a snapshot of all company roles.
func (f *FakeRepository) Roles() []domain.CompanyRole {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CompanyRole, 0, len(f.roles))
	for r := range f.roles {
		out = append(out, r)
	}
	return out
}

func (f *FakeRepository) GetByID(ctx context.Context, id int64) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getByID(id)
}

func (f *FakeRepository) getByID(id int64) (*domain.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *FakeRepository) GetByExternalID(ctx context.Context, source string, externalID int64) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getByExternalID(source, externalID)
}

func (f *FakeRepository) getByExternalID(source string, externalID int64) (*domain.Game, error) {
	for _, g := range f.games {
		if id := g.ExternalID(source); id != nil && *id == externalID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrGameNotFound
}

func (f *FakeRepository) GetBySlug(ctx context.Context, slug string) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getBySlug(slug)
}

func (f *FakeRepository) getBySlug(slug string) (*domain.Game, error) {
	for _, g := range f.games {
		if strings.EqualFold(g.Slug, slug) || strings.EqualFold(g.OGSlug, slug) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrGameNotFound
}

func (f *FakeRepository) SlugExists(ctx context.Context, slug string, excludeID *int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slugExists(slug, excludeID), nil
}

func (f *FakeRepository) slugExists(slug string, excludeID *int64) bool {
	for _, g := range f.games {
		if excludeID != nil && g.ID == *excludeID {
			continue
		}
		if strings.EqualFold(g.Slug, slug) || strings.EqualFold(g.OGSlug, slug) {
			return true
		}
	}
	return false
}

func (f *FakeRepository) FindMatchCandidates(ctx context.Context, q repository.CandidateQuery) ([]domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	competing := domain.SourceRAWG
	if q.Source == domain.SourceRAWG {
		competing = domain.SourceSteam
	}

	var out []domain.Game
	for _, g := range f.games {
		if g.ExternalID(competing) == nil || g.ExternalID(q.Source) != nil || g.IsDLC() {
			continue
		}
		if !candidateTextMatch(g, q) {
			continue
		}
		if q.ReleaseDate != nil && g.ReleaseDate != nil && q.DateWindow > 0 {
			diff := q.ReleaseDate.Sub(*g.ReleaseDate)
			if diff < 0 {
				diff = -diff
			}
			if diff > q.DateWindow {
				continue
			}
		}
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func candidateTextMatch(g *domain.Game, q repository.CandidateQuery) bool {
	if q.Slug != "" && (strings.EqualFold(g.Slug, q.Slug) || strings.EqualFold(g.OGSlug, q.Slug)) {
		return true
	}
	if len(q.RequiredTokens) == 0 {
		return false
	}
	name := strings.ToLower(g.Name + " " + g.OGName)
	for _, tok := range q.RequiredTokens {
		if !strings.Contains(name, strings.ToLower(tok)) {
			return false
		}
	}
	return true
}

func (f *FakeRepository) ListCompanyNames(ctx context.Context, gameID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	seen := map[int64]bool{}
	for role := range f.roles {
		if role.GameID != gameID || seen[role.CompanyID] {
			continue
		}
		seen[role.CompanyID] = true
		if c, ok := f.companies[role.CompanyID]; ok {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *FakeRepository) GetDetail(ctx context.Context, gameID int64) (*domain.GameDetail, error) {
	return f.Detail(gameID), nil
}

// BeginTx snapshots the state; Rollback restores it.
func (f *FakeRepository) BeginTx(ctx context.Context) (repository.GameTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fakeTx{repo: f, snapshot: f.snapshot()}, nil
}

type state struct {
	nextGameID    int64
	nextReleaseID int64
	nextCompanyID int64
	games         map[int64]*domain.Game
	details       map[int64]*domain.GameDetail
	releases      map[int64]*domain.GameRelease
	companies     map[int64]*domain.Company
	roles         map[domain.CompanyRole]bool
}

func (f *FakeRepository) snapshot() state {
	s := state{
		nextGameID:    f.nextGameID,
		nextReleaseID: f.nextReleaseID,
		nextCompanyID: f.nextCompanyID,
		games:         make(map[int64]*domain.Game, len(f.games)),
		details:       make(map[int64]*domain.GameDetail, len(f.details)),
		releases:      make(map[int64]*domain.GameRelease, len(f.releases)),
		companies:     make(map[int64]*domain.Company, len(f.companies)),
		roles:         make(map[domain.CompanyRole]bool, len(f.roles)),
	}
	for id, g := range f.games {
		cp := *g
		s.games[id] = &cp
	}
	for id, d := range f.details {
		cp := *d
		s.details[id] = &cp
	}
	for id, r := range f.releases {
		cp := *r
		s.releases[id] = &cp
	}
	for id, c := range f.companies {
		cp := *c
		s.companies[id] = &cp
	}
	for r := range f.roles {
		s.roles[r] = true
	}
	return s
}

func (f *FakeRepository) restore(s state) {
	f.nextGameID = s.nextGameID
	f.nextReleaseID = s.nextReleaseID
	f.nextCompanyID = s.nextCompanyID
	f.games = s.games
	f.details = s.details
	f.releases = s.releases
	f.companies = s.companies
	f.roles = s.roles
}

type fakeTx struct {
	repo     *FakeRepository
	snapshot state
	done     bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.done = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.restore(t.snapshot)
	t.done = true
	return nil
}

func (t *fakeTx) GetByID(ctx context.Context, id int64) (*domain.Game, error) {
	return t.repo.GetByID(ctx, id)
}

func (t *fakeTx) GetByExternalID(ctx context.Context, source string, externalID int64) (*domain.Game, error) {
	return t.repo.GetByExternalID(ctx, source, externalID)
}

func (t *fakeTx) GetBySlug(ctx context.Context, slug string) (*domain.Game, error) {
	return t.repo.GetBySlug(ctx, slug)
}

func (t *fakeTx) SlugExists(ctx context.Context, slug string, excludeID *int64) (bool, error) {
	return t.repo.SlugExists(ctx, slug, excludeID)
}

func (t *fakeTx) Create(ctx context.Context, g *domain.Game) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateHook != nil {
		if err := f.CreateHook(g); err != nil {
			return err
		}
	}
	if err := f.checkConstraints(g, nil); err != nil {
		return err
	}

	f.nextGameID++
	cp := *g
	cp.ID = f.nextGameID
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	f.games[cp.ID] = &cp

	g.ID = cp.ID
	g.CreatedAt = cp.CreatedAt
	g.UpdatedAt = cp.UpdatedAt
	return nil
}

func (t *fakeTx) Update(ctx context.Context, g *domain.Game) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateHook != nil {
		if err := f.UpdateHook(g); err != nil {
			return err
		}
	}
	if _, ok := f.games[g.ID]; !ok {
		return domain.ErrGameNotFound
	}
	exclude := g.ID
	if err := f.checkConstraints(g, &exclude); err != nil {
		return err
	}

	cp := *g
	cp.UpdatedAt = time.Now()
	f.games[g.ID] = &cp
	return nil
}

// checkConstraints mirrors the schema's unique indexes and returns the same
// typed error the real store would.
func (f *FakeRepository) checkConstraints(g *domain.Game, excludeID *int64) error {
	for _, other := range f.games {
		if excludeID != nil && other.ID == *excludeID {
			continue
		}
		if g.SteamID != nil && other.SteamID != nil && *g.SteamID == *other.SteamID {
			return &domain.DuplicateKeyError{Constraint: "games_steam_id_key", Value: strconv.FormatInt(*g.SteamID, 10)}
		}
		if g.RawgID != nil && other.RawgID != nil && *g.RawgID == *other.RawgID {
			return &domain.DuplicateKeyError{Constraint: "games_rawg_id_key", Value: strconv.FormatInt(*g.RawgID, 10)}
		}
		if g.Slug != "" && strings.EqualFold(g.Slug, other.Slug) {
			return &domain.DuplicateKeyError{Constraint: "games_slug_key", Value: g.Slug}
		}
		if g.OGSlug != "" && strings.EqualFold(g.OGSlug, other.OGSlug) {
			return &domain.DuplicateKeyError{Constraint: "games_og_slug_key", Value: g.OGSlug}
		}
	}
	return nil
}

func (t *fakeTx) UpdateSlugs(ctx context.Context, gameID int64, slug, ogSlug string) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	g.Slug = slug
	g.OGSlug = ogSlug
	g.UpdatedAt = time.Now()
	return nil
}

func (t *fakeTx) UpdateExternalIDs(ctx context.Context, gameID int64, source string, externalID, parentID *int64) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	if externalID != nil {
		probe := *g
		probe.SetExternalID(source, externalID)
		exclude := gameID
		if err := f.checkConstraints(&probe, &exclude); err != nil {
			return err
		}
	}
	g.SetExternalID(source, externalID)
	if source == domain.SourceSteam {
		g.ParentSteamID = parentID
	} else {
		g.ParentRawgID = parentID
	}
	g.UpdatedAt = time.Now()
	return nil
}

func (t *fakeTx) ClearExternalID(ctx context.Context, gameID int64, source string) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	g.SetExternalID(source, nil)
	return nil
}

func (t *fakeTx) SetExternalID(ctx context.Context, gameID int64, source string, externalID int64) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	for _, other := range f.games {
		if other.ID == gameID {
			continue
		}
		if id := other.ExternalID(source); id != nil && *id == externalID {
			return &domain.DuplicateKeyError{Constraint: "games_" + source + "_id_key", Value: strconv.FormatInt(externalID, 10)}
		}
	}
	g.SetExternalID(source, &externalID)
	return nil
}

func (t *fakeTx) Delete(ctx context.Context, gameID int64) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.games[gameID]; !ok {
		return domain.ErrGameNotFound
	}
	delete(f.games, gameID)
	delete(f.details, gameID)
	for id, r := range f.releases {
		if r.GameID == gameID {
			delete(f.releases, id)
		}
	}
	for role := range f.roles {
		if role.GameID == gameID {
			delete(f.roles, role)
		}
	}
	return nil
}

func (t *fakeTx) LockPair(ctx context.Context, firstID, secondID int64) (*domain.Game, *domain.Game, error) {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	first, ok1 := f.games[firstID]
	second, ok2 := f.games[secondID]
	if !ok1 || !ok2 {
		return nil, nil, domain.ErrMergeParticipant
	}
	cp1, cp2 := *first, *second
	return &cp1, &cp2, nil
}

func (t *fakeTx) UpsertDetail(ctx context.Context, detail *domain.GameDetail) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *detail
	cp.UpdatedAt = time.Now()
	f.details[detail.GameID] = &cp
	return nil
}

func (t *fakeTx) DeleteDetail(ctx context.Context, gameID int64) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.details, gameID)
	return nil
}

func (t *fakeTx) ListReleases(ctx context.Context, gameID int64) ([]domain.GameRelease, error) {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.GameRelease
	for _, r := range f.releases {
		if r.GameID == gameID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) UpsertRelease(ctx context.Context, release *domain.GameRelease) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.releases {
		if existing.GameID == release.GameID && existing.Key() == release.Key() {
			id := existing.ID
			cp := *release
			cp.ID = id
			cp.UpdatedAt = time.Now()
			f.releases[id] = &cp
			release.ID = id
			return nil
		}
	}

	f.nextReleaseID++
	cp := *release
	cp.ID = f.nextReleaseID
	cp.UpdatedAt = time.Now()
	f.releases[cp.ID] = &cp
	release.ID = cp.ID
	return nil
}

func (t *fakeTx) DeleteRelease(ctx context.Context, releaseID int64) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.releases, releaseID)
	return nil
}

func (t *fakeTx) ReassignReleases(ctx context.Context, releaseIDs []int64, toGameID int64) (int64, error) {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	var moved int64
	for _, id := range releaseIDs {
		if r, ok := f.releases[id]; ok {
			r.GameID = toGameID
			moved++
		}
	}
	return moved, nil
}

func (t *fakeTx) GetCompanyBySlugOrName(ctx context.Context, slug, name string) (*domain.Company, error) {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.companies {
		if strings.EqualFold(c.Slug, slug) || strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCompanyNotFound
}

func (t *fakeTx) CreateCompany(ctx context.Context, company *domain.Company) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextCompanyID++
	cp := *company
	cp.ID = f.nextCompanyID
	f.companies[cp.ID] = &cp
	company.ID = cp.ID
	return nil
}

func (t *fakeTx) UpsertCompanyRole(ctx context.Context, role domain.CompanyRole) error {
	f := t.repo
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[role] = true
	return nil
}
