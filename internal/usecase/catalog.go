package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"club-site/internal/catalog"
	"club-site/internal/domain"
	"club-site/internal/repository"
)

const (
	teamMembersKey      = "team_members"
	featuredProjectsKey = "featured_projects"
)

// CatalogService serves the team and project reference data.
type CatalogService struct {
	store   Store
	catalog catalog.Catalog
}

func NewCatalogService(s Store, c catalog.Catalog) (*CatalogService, error) {
	if s == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if len(c.Team) == 0 || len(c.Projects) == 0 {
		return nil, errors.New("usecase: catalog must have team and projects")
	}
	return &CatalogService{store: s, catalog: c}, nil
}

// Team returns the configured team and refreshes its cached copy in the store.
// A failed refresh is logged and does not fail the read.
func (s *CatalogService) Team(ctx context.Context) ([]domain.TeamMember, error) {
	team := append([]domain.TeamMember(nil), s.catalog.Team...)
	if err := s.store.Set(ctx, teamMembersKey, team); err != nil {
		slog.WarnContext(ctx, "team cache refresh failed", "key", teamMembersKey, "err", err)
	}
	return team, nil
}

// Projects returns the published projects, or the configured defaults when
// nothing has been published yet.
func (s *CatalogService) Projects(ctx context.Context) ([]domain.Project, error) {
	raw, err := s.store.Get(ctx, featuredProjectsKey)
	if errors.Is(err, repository.ErrNotFound) {
		return s.defaultProjects(), nil
	}
	if err != nil {
		return nil, newError(ErrorStorage, "store_read_error", err)
	}

	var projects []domain.Project
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, newError(ErrorStorage, "store_decode_error", fmt.Errorf("decode %q: %w", featuredProjectsKey, err))
	}
	if projects == nil {
		return s.defaultProjects(), nil
	}
	return projects, nil
}

// PublishProjects stores the configured projects as the published set.
func (s *CatalogService) PublishProjects(ctx context.Context) ([]domain.Project, error) {
	projects := s.defaultProjects()
	if err := s.store.Set(ctx, featuredProjectsKey, projects); err != nil {
		return nil, newError(ErrorStorage, "store_write_error", err)
	}
	slog.InfoContext(ctx, "featured projects published", "count", len(projects))
	return projects, nil
}

func (s *CatalogService) defaultProjects() []domain.Project {
	return append([]domain.Project(nil), s.catalog.Projects...)
}
