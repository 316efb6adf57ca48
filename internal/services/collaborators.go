package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
	"github.com/visionforge/classifier-backend/internal/platform/sendgrid"
)

// CollaboratorService keeps the collaborator rows and the dataset's
// denormalized email set in step, and sends the invite mail.
type CollaboratorService interface {
	Invite(ctx context.Context, datasetKey uuid.UUID, email string) (*domain.Collaborator, error)
	Remove(ctx context.Context, collaboratorID uuid.UUID) error
}

type collaboratorService struct {
	log           *logger.Logger
	datasets      repos.DatasetRepo
	collaborators repos.CollaboratorRepo
	mail          sendgrid.Client
}

func NewCollaboratorService(
	baseLog *logger.Logger,
	datasets repos.DatasetRepo,
	collaborators repos.CollaboratorRepo,
	mail sendgrid.Client,
) CollaboratorService {
	return &collaboratorService{
		log:           baseLog.With("service", "CollaboratorService"),
		datasets:      datasets,
		collaborators: collaborators,
		mail:          mail,
	}
}

func (s *collaboratorService) Invite(ctx context.Context, datasetKey uuid.UUID, email string) (*domain.Collaborator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email required: %w", errs.ErrInvalidArgument)
	}

	dbc := dbctx.Context{Ctx: ctx}
	ds, err := s.datasets.GetByKey(dbc, datasetKey)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, fmt.Errorf("dataset %s: %w", datasetKey, errs.ErrNotFound)
	}

	c, err := s.collaborators.Create(dbc, &domain.Collaborator{
		DatasetKey: ds.ID,
		Email:      email,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.datasets.AddCollaboratorEmail(dbc, ds.ID, email); err != nil {
		return nil, err
	}

	// The record and the set are the source of truth; a lost invite mail is
	// re-sendable and must not roll them back.
	if s.mail == nil {
		s.log.Warn("Mail client not configured, invite mail skipped", "dataset", ds.Name, "email", email)
		return c, nil
	}
	if _, err := s.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: email}},
		Subject: fmt.Sprintf("You've been invited to the %s dataset", ds.Name),
		Text: fmt.Sprintf(
			"You have been added as a collaborator on the image classification dataset %q. "+
				"Open the app to start adding training data.", ds.Name),
	}); err != nil {
		s.log.Warn("Invite mail failed", "dataset", ds.Name, "email", email, "error", err)
	}

	s.log.Info("Collaborator invited", "dataset", ds.Name, "email", email)
	return c, nil
}

func (s *collaboratorService) Remove(ctx context.Context, collaboratorID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	c, err := s.collaborators.GetByID(dbc, collaboratorID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("collaborator %s: %w", collaboratorID, errs.ErrNotFound)
	}

	if err := s.collaborators.Delete(dbc, c.ID); err != nil {
		return err
	}
	if _, err := s.datasets.RemoveCollaboratorEmail(dbc, c.DatasetKey, c.Email); err != nil {
		return err
	}
	s.log.Info("Collaborator removed", "dataset_key", c.DatasetKey, "email", c.Email)
	return nil
}
