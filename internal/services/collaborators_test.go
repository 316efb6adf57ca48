package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
)

func TestInviteCreatesRecordSetAndMail(t *testing.T) {
	datasets := &fakeDatasetRepo{}
	collaborators := &fakeCollaboratorRepo{}
	mail := &fakeMail{}
	svc := NewCollaboratorService(testLogger(t), datasets, collaborators, mail)

	ds, _ := datasets.Create(dbc(), &domain.Dataset{Name: "flowers", AutomlID: "ICN42"})

	c, err := svc.Invite(context.Background(), ds.ID, "Friend@Example.com")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if c.Email != "friend@example.com" {
		t.Fatalf("email not normalized: %q", c.Email)
	}
	emails := ds.CollaboratorEmails()
	if len(emails) != 1 || emails[0] != "friend@example.com" {
		t.Fatalf("dataset email set = %v", emails)
	}
	if len(mail.sent) != 1 || mail.sent[0].To[0].Email != "friend@example.com" {
		t.Fatalf("invite mail = %+v", mail.sent)
	}
}

func TestInviteMailFailureIsNotFatal(t *testing.T) {
	datasets := &fakeDatasetRepo{}
	collaborators := &fakeCollaboratorRepo{}
	mail := &fakeMail{err: errors.New("sendgrid down")}
	svc := NewCollaboratorService(testLogger(t), datasets, collaborators, mail)

	ds, _ := datasets.Create(dbc(), &domain.Dataset{Name: "flowers"})
	if _, err := svc.Invite(context.Background(), ds.ID, "friend@example.com"); err != nil {
		t.Fatalf("Invite must survive a mail failure, got %v", err)
	}
	if len(collaborators.rows) != 1 {
		t.Fatal("record must still be written")
	}
}

func TestInviteValidation(t *testing.T) {
	svc := NewCollaboratorService(testLogger(t), &fakeDatasetRepo{}, &fakeCollaboratorRepo{}, &fakeMail{})

	if _, err := svc.Invite(context.Background(), uuid.New(), "not-an-email"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Invite(context.Background(), uuid.New(), "friend@example.com"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound for missing dataset, got %v", err)
	}
}

func TestRemoveCollaboratorLeavesOthers(t *testing.T) {
	datasets := &fakeDatasetRepo{}
	collaborators := &fakeCollaboratorRepo{}
	svc := NewCollaboratorService(testLogger(t), datasets, collaborators, &fakeMail{})

	ds, _ := datasets.Create(dbc(), &domain.Dataset{Name: "flowers"})
	first, _ := svc.Invite(context.Background(), ds.ID, "first@example.com")
	_, _ = svc.Invite(context.Background(), ds.ID, "second@example.com")

	if err := svc.Remove(context.Background(), first.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	emails := ds.CollaboratorEmails()
	if len(emails) != 1 || emails[0] != "second@example.com" {
		t.Fatalf("dataset email set after removal = %v", emails)
	}
	if len(collaborators.rows) != 1 || collaborators.rows[0].Email != "second@example.com" {
		t.Fatalf("remaining rows = %+v", collaborators.rows)
	}

	if err := svc.Remove(context.Background(), first.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound for repeated removal, got %v", err)
	}
}
