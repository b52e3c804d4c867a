package probe

import (
	"context"
	"fmt"

	"loginwatch/browser"
	"loginwatch/logger"
)

// SubmitResult reports which scoping strategy located the submit control.
type SubmitResult struct {
	UsedStrategy string
}

// Submitter fills and submits the login form. It does not retry: a failure
// here means the UI structure changed and surfaces to the attempt boundary.
type Submitter struct {
	cfg     Config
	surface browser.Surface
	logger  logger.Logger
}

// NewSubmitter creates a submitter over one surface.
func NewSubmitter(cfg Config, surface browser.Surface, log logger.Logger) *Submitter {
	return &Submitter{
		cfg:     cfg,
		surface: surface,
		logger:  log,
	}
}

// Submit locates the username input, fills both credentials and clicks the
// submit control resolved by outward scope narrowing (enclosing form, then
// enclosing container with the password input, then page-wide unique label).
// The secret is written verbatim: trailing whitespace is part of the
// credential.
func (s *Submitter) Submit(ctx context.Context, identity, secret string) (SubmitResult, error) {
	if err := s.surface.WaitVisible(ctx, s.cfg.UsernameSelector, s.cfg.ElementWait); err != nil {
		return SubmitResult{}, fmt.Errorf("username input: %w", err)
	}

	if err := s.surface.Fill(ctx, s.cfg.UsernameSelector, identity); err != nil {
		return SubmitResult{}, fmt.Errorf("fill username: %w", err)
	}
	if err := s.surface.Fill(ctx, s.cfg.PasswordSelector, secret); err != nil {
		return SubmitResult{}, fmt.Errorf("fill password: %w", err)
	}

	strategy, err := s.surface.ClickSubmit(ctx, browser.SubmitQuery{
		UsernameSelector: s.cfg.UsernameSelector,
		PasswordSelector: s.cfg.PasswordSelector,
		Label:            s.cfg.SubmitLabel,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit control: %w", err)
	}

	s.logger.Debug(ctx, "credentials submitted", map[string]interface{}{
		"identity": identity,
		"strategy": strategy,
	})
	return SubmitResult{UsedStrategy: strategy}, nil
}
