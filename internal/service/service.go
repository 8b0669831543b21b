// Package service wires sources, analyzers, the summarizer and notifiers
// into review runs shared by the CLI, the HTTP API and the MCP server.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joescharf/revu/internal/analysis"
	"github.com/joescharf/revu/internal/config"
	"github.com/joescharf/revu/internal/git"
	"github.com/joescharf/revu/internal/llm"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/notify"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/store"
)

// ErrNoGitHub is returned when a pull request review is requested without
// a configured GitHub source.
var ErrNoGitHub = errors.New("github source not configured")

// Options are the collaborators of a Service.
type Options struct {
	GitHub     git.Source
	Reviewer   analysis.Reviewer
	Summarizer review.Summarizer
	Notifier   notify.Notifier
	Thresholds models.Thresholds
	Extensions []string
	Logger     *slog.Logger
}

// Service runs reviews.
type Service struct {
	opts  Options
	tasks []review.Task
}

// New builds a Service. Zero thresholds use the defaults.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Thresholds == (models.Thresholds{}) {
		opts.Thresholds = models.DefaultThresholds()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{Logger: opts.Logger}
	}
	return &Service{
		opts:  opts,
		tasks: analysis.Tasks(opts.Reviewer, opts.Summarizer, opts.Logger),
	}
}

// Thresholds returns the thresholds decisions are made against.
func (s *Service) Thresholds() models.Thresholds { return s.opts.Thresholds }

// ReviewPR reviews a pull request.
func (s *Service) ReviewPR(ctx context.Context, owner, repo string, number int) (*review.Result, error) {
	if s.opts.GitHub == nil {
		return nil, ErrNoGitHub
	}
	return s.run(ctx, s.opts.GitHub, review.Request{Owner: owner, Repo: repo, Number: number})
}

// ReviewPaths reviews files and directories on disk.
func (s *Service) ReviewPaths(ctx context.Context, paths ...string) (*review.Result, error) {
	return s.run(ctx, git.NewLocalSource(paths...), review.Request{})
}

// ReviewContents reviews caller-supplied file contents.
func (s *Service) ReviewContents(ctx context.Context, title string, files []models.FileData) (*review.Result, error) {
	return s.run(ctx, git.NewMemorySource(title, "", files), review.Request{})
}

func (s *Service) run(ctx context.Context, src git.Source, req review.Request) (*review.Result, error) {
	wf, err := review.New(review.Config{
		Detector:   git.Detector{Source: src, Extensions: s.opts.Extensions, Logger: s.opts.Logger},
		Tasks:      s.tasks,
		Summarizer: s.opts.Summarizer,
		Notifier:   s.opts.Notifier,
		Thresholds: s.opts.Thresholds,
		Logger:     s.opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build workflow: %w", err)
	}
	return wf.Run(ctx, req), nil
}

// FromConfig builds a Service from resolved configuration. The returned
// close function releases the content cache and must be called.
func FromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Service, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	closer := func() error { return nil }

	var gh git.Source
	if cfg.GitHubToken != "" {
		gh = git.NewGitHubSource(cfg.GitHubToken, cfg.GitHubAPIURL)
		if cfg.CacheEnabled {
			st, err := store.NewSQLiteStore(cfg.CachePath)
			if err != nil {
				return nil, nil, fmt.Errorf("open cache: %w", err)
			}
			if err := st.Migrate(ctx); err != nil {
				_ = st.Close()
				return nil, nil, fmt.Errorf("migrate cache: %w", err)
			}
			gh = store.NewCachedSource(gh, st, cfg.CacheTTL, logger)
			closer = st.Close
		}
	}

	var (
		reviewer   analysis.Reviewer
		summarizer review.Summarizer
	)
	if cfg.Offline {
		reviewer, summarizer = llm.Offline{}, llm.Offline{}
	} else {
		c := llm.NewClient(cfg.AnthropicKey, cfg.AnthropicModel)
		reviewer, summarizer = c, c
	}

	notifiers := notify.Multi{notify.LogNotifier{Logger: logger}}
	if cfg.EmailEnabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(notify.EmailConfig{
			From:     cfg.EmailFrom,
			Password: cfg.EmailPassword,
			To:       cfg.EmailTo,
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
		}, logger))
	}

	svc := New(Options{
		GitHub:     gh,
		Reviewer:   reviewer,
		Summarizer: summarizer,
		Notifier:   notifiers,
		Thresholds: cfg.Thresholds,
		Extensions: cfg.Extensions,
		Logger:     logger,
	})
	return svc, closer, nil
}
