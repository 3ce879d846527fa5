package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

// ProgressService records advisory reading status on owned books. Nothing
// here feeds back into access decisions.
type ProgressService interface {
	Record(ctx context.Context, userID, bookID string, status domain.ReadingStatus) error
	List(ctx context.Context, userID string) (map[string]domain.ReadingStatus, error)
}

type progressService struct {
	users    repository.UserRepository
	progress repository.ProgressRepository
}

func NewProgressService(users repository.UserRepository, progress repository.ProgressRepository) ProgressService {
	return &progressService{users: users, progress: progress}
}

func (s *progressService) Record(ctx context.Context, userID, bookID string, status domain.ReadingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status must be %s or %s", ErrInvalidInput, domain.ReadingStatusReading, domain.ReadingStatusCompleted)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !user.Owns(bookID) {
		return ErrNotEntitled
	}
	if err := s.progress.Upsert(ctx, &domain.Progress{UserID: userID, BookID: bookID, Status: status}); err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	return nil
}

func (s *progressService) List(ctx context.Context, userID string) (map[string]domain.ReadingStatus, error) {
	entries, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	out := make(map[string]domain.ReadingStatus, len(entries))
	for _, p := range entries {
		out[p.BookID] = p.Status
	}
	return out, nil
}

// ContactService stores messages sent through the contact form.
type ContactService interface {
	Submit(ctx context.Context, name, email, subject, body string) (*domain.Message, error)
}

type contactService struct {
	messages repository.MessageRepository
}

func NewContactService(messages repository.MessageRepository) ContactService {
	return &contactService{messages: messages}
}

func (s *contactService) Submit(ctx context.Context, name, email, subject, body string) (*domain.Message, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)

	if name == "" || email == "" || body == "" {
		return nil, fmt.Errorf("%w: name, email and message are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if subject == "" {
		subject = domain.DefaultMessageSubject
	}

	msg := &domain.Message{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Subject:   subject,
		Body:      body,
		Status:    domain.MessageStatusNew,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	return msg, nil
}
