package template

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	Create(ctx context.Context, p CreateParams, variables []string) (Template, error)
	Get(ctx context.Context, code, language string) (Template, error)
	GetByCode(ctx context.Context, code string) (Template, error)
	Update(ctx context.Context, code string, p UpdateParams, variables []string, bumpVersion bool) (Template, error)
	Delete(ctx context.Context, code string) error
	List(ctx context.Context, f ListFilter) ([]Template, int, error)
}

// TemplateCache is the caching surface the service needs; misses and failures
// are signalled by the ok bool, never by errors.
type TemplateCache interface {
	Get(ctx context.Context, code, language string) (Template, bool)
	Set(ctx context.Context, t Template)
	Invalidate(ctx context.Context, code string)
}

// Service implements template management: CRUD with variable auto-extraction,
// read-through caching and placeholder rendering.
type Service struct {
	repo  Repository
	cache TemplateCache
	log   *slog.Logger
}

// NewService creates a Service.
func NewService(repo Repository, cache TemplateCache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, cache: cache, log: log}
}

// Create stores a new template. Placeholders referenced by the body, subject
// and title are merged into the declared variable list.
func (s *Service) Create(ctx context.Context, p CreateParams) (Template, error) {
	if strings.TrimSpace(p.Code) == "" || strings.TrimSpace(p.Body) == "" {
		return Template{}, fmt.Errorf("%w: template_code and body are required", ErrInvalidParams)
	}
	if p.Language == "" {
		p.Language = "en"
	}

	variables := mergeVariables(p.Variables, ExtractVariables(p.Body, p.Subject, p.Title))

	t, err := s.repo.Create(ctx, p, variables)
	if err != nil {
		return Template{}, err
	}

	s.cache.Set(ctx, t)
	s.log.InfoContext(ctx, "template created",
		slog.String("code", t.Code),
		slog.String("language", t.Language))
	return t, nil
}

// Get returns a template, serving from cache when possible.
func (s *Service) Get(ctx context.Context, code, language string) (Template, error) {
	if language == "" {
		language = "en"
	}

	if t, ok := s.cache.Get(ctx, code, language); ok {
		return t, nil
	}

	t, err := s.repo.Get(ctx, code, language)
	if err != nil {
		return Template{}, err
	}

	s.cache.Set(ctx, t)
	return t, nil
}

// Update applies changes, re-extracts variables when content changed and
// invalidates every cached variant of the code.
func (s *Service) Update(ctx context.Context, code string, p UpdateParams) (Template, error) {
	current, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return Template{}, err
	}

	body := current.Body
	if p.Body != nil {
		body = *p.Body
	}
	subject := current.Subject
	if p.Subject != nil {
		subject = *p.Subject
	}
	title := current.Title
	if p.Title != nil {
		title = *p.Title
	}

	contentChanged := p.Body != nil || p.Subject != nil || p.Title != nil
	variables := current.Variables
	if contentChanged {
		variables = ExtractVariables(body, subject, title)
	}

	t, err := s.repo.Update(ctx, code, p, variables, contentChanged)
	if err != nil {
		return Template{}, err
	}

	s.cache.Invalidate(ctx, code)
	s.log.InfoContext(ctx, "template updated",
		slog.String("code", code),
		slog.Int("version", t.Version))
	return t, nil
}

// Delete removes a template and its cached variants.
func (s *Service) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, code)
	s.log.InfoContext(ctx, "template deleted", slog.String("code", code))
	return nil
}

// List returns one page of templates plus the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Template, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Language == "" {
		f.Language = "en"
	}
	return s.repo.List(ctx, f)
}

// Render substitutes values into a template's parts. Every variable the
// template references must be provided.
func (s *Service) Render(ctx context.Context, code, language string, values map[string]string) (Rendered, error) {
	t, err := s.Get(ctx, code, language)
	if err != nil {
		return Rendered{}, err
	}

	var missing []string
	for _, v := range t.Variables {
		if _, ok := values[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return Rendered{}, fmt.Errorf("%w: %s", ErrMissingVariables, strings.Join(missing, ", "))
	}

	return Rendered{
		Subject: Render(t.Subject, values),
		Body:    Render(t.Body, values),
		Title:   Render(t.Title, values),
	}, nil
}

func mergeVariables(declared, extracted []string) []string {
	out := slices.Clone(declared)
	for _, v := range extracted {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
