package contacts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"visionreport/internal/shared/telemetry"
	"visionreport/internal/shared/util"
)

const (
	maxNameLength    = 200
	maxSubjectLength = 200
	maxMessageLength = 5000
)

// Repo persists contact submissions.
type Repo interface {
	Create(ctx context.Context, c Contact) error
}

type Service struct {
	Repo Repo
}

// Submit validates and stores a contact message.
func (s *Service) Submit(ctx context.Context, c Contact) (Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Subject = strings.TrimSpace(c.Subject)
	c.Message = strings.TrimSpace(c.Message)

	switch {
	case c.Name == "" || len(c.Name) > maxNameLength:
		return Contact{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case c.Message == "" || len(c.Message) > maxMessageLength:
		return Contact{}, fmt.Errorf("%w: message must be 1-%d characters", ErrInvalidInput, maxMessageLength)
	case len(c.Subject) > maxSubjectLength:
		return Contact{}, fmt.Errorf("%w: subject too long", ErrInvalidInput)
	}
	if !util.ValidEmail(c.Email) {
		return Contact{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	if err := s.Repo.Create(ctx, c); err != nil {
		return Contact{}, err
	}
	telemetry.Info("contacts.submitted", map[string]any{"contact_id": c.ID, "user_id": c.UserID})
	return c, nil
}
