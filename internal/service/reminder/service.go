// Package reminder implements owner-scoped reminder management. Every
// operation takes the acting user explicitly and refuses to touch reminders
// owned by anyone else.
package reminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	repo "github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres/reminder"
	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type reminderRepo interface {
	Create(ctx context.Context, rem domain.Reminder) (domain.Reminder, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Reminder, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error)
	Update(ctx context.Context, id uuid.UUID, params repo.UpdateParams) error
	Delete(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (domain.ReminderStats, error)
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Config holds reminder validation limits.
type Config struct {
	DefaultTriggerRadiusM int
	MaxTriggerRadiusM     int
}

// Service implements reminder CRUD business logic.
type Service struct {
	reminders reminderRepo
	log       *slog.Logger
	cfg       Config
}

// NewService creates a new reminder service.
func NewService(log *slog.Logger, reminders reminderRepo, cfg Config) *Service {
	return &Service{reminders: reminders, log: log, cfg: cfg}
}

// CreateInput holds the attributes for a new reminder.
type CreateInput struct {
	Category       domain.StoreCategory
	Title          string
	Memo           string
	TriggerRadiusM int // 0 means "use the default"
}

// Create validates the input and stores a new armed reminder for the user.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (domain.Reminder, error) {
	radius := input.TriggerRadiusM
	if radius == 0 {
		radius = s.cfg.DefaultTriggerRadiusM
	}

	if err := s.validate(input.Category, input.Title, radius); err != nil {
		return domain.Reminder{}, err
	}

	rem, err := s.reminders.Create(ctx, domain.Reminder{
		UserID:         userID,
		Category:       input.Category,
		Title:          input.Title,
		Memo:           input.Memo,
		TriggerRadiusM: radius,
		IsActive:       true,
	})
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("create reminder: %w", err)
	}

	s.log.InfoContext(ctx, "reminder created",
		slog.String("reminder_id", rem.ID.String()),
		slog.String("category", rem.Category.String()),
		slog.Int("trigger_radius_m", rem.TriggerRadiusM),
	)

	return rem, nil
}

// Get returns one reminder. Reminders of other users are forbidden, not
// hidden: the owner boundary is an authorization failure.
func (s *Service) Get(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error) {
	return s.owned(ctx, userID, reminderID)
}

// List returns all of the user's reminders, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error) {
	reminders, err := s.reminders.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// UpdateInput holds editable reminder fields; nil means "keep current".
type UpdateInput struct {
	Category       *domain.StoreCategory
	Title          *string
	Memo           *string
	TriggerRadiusM *int
}

// Update edits a reminder the user owns.
func (s *Service) Update(ctx context.Context, userID, reminderID uuid.UUID, input UpdateInput) (domain.Reminder, error) {
	rem, err := s.owned(ctx, userID, reminderID)
	if err != nil {
		return domain.Reminder{}, err
	}

	if input.Category != nil {
		rem.Category = *input.Category
	}
	if input.Title != nil {
		rem.Title = *input.Title
	}
	if input.Memo != nil {
		rem.Memo = *input.Memo
	}
	if input.TriggerRadiusM != nil {
		rem.TriggerRadiusM = *input.TriggerRadiusM
	}

	if err := s.validate(rem.Category, rem.Title, rem.TriggerRadiusM); err != nil {
		return domain.Reminder{}, err
	}

	err = s.reminders.Update(ctx, reminderID, repo.UpdateParams{
		Category:       rem.Category,
		Title:          rem.Title,
		Memo:           rem.Memo,
		TriggerRadiusM: rem.TriggerRadiusM,
	})
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("update reminder: %w", err)
	}

	return rem, nil
}

// Delete removes a reminder the user owns, along with its trigger history.
func (s *Service) Delete(ctx context.Context, userID, reminderID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, reminderID); err != nil {
		return err
	}

	if err := s.reminders.Delete(ctx, reminderID); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	s.log.InfoContext(ctx, "reminder deleted", slog.String("reminder_id", reminderID.String()))
	return nil
}

// Reactivate re-arms a fired reminder. This is the only path back from
// FIRED to ARMED and it is always an explicit owner action.
func (s *Service) Reactivate(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error) {
	rem, err := s.owned(ctx, userID, reminderID)
	if err != nil {
		return domain.Reminder{}, err
	}

	if !rem.IsActive {
		if err := s.reminders.Reactivate(ctx, reminderID); err != nil {
			return domain.Reminder{}, fmt.Errorf("reactivate reminder: %w", err)
		}
		rem.IsActive = true
	}

	return rem, nil
}

// Stats returns the user's total and active reminder counts.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (domain.ReminderStats, error) {
	stats, err := s.reminders.Stats(ctx, userID)
	if err != nil {
		return domain.ReminderStats{}, fmt.Errorf("reminder stats: %w", err)
	}
	return stats, nil
}

// owned loads a reminder and enforces the ownership boundary.
func (s *Service) owned(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error) {
	rem, err := s.reminders.GetByID(ctx, reminderID)
	if err != nil {
		return domain.Reminder{}, err
	}
	if rem.UserID != userID {
		return domain.Reminder{}, fmt.Errorf("reminder %s: %w", reminderID, domain.ErrForbidden)
	}
	return rem, nil
}

func (s *Service) validate(category domain.StoreCategory, title string, radius int) error {
	var errs []domain.FieldError

	if !category.IsValid() {
		errs = append(errs, domain.FieldError{Field: "category", Message: fmt.Sprintf("unknown store category %q", category)})
	}
	if title == "" {
		errs = append(errs, domain.FieldError{Field: "title", Message: "title is required"})
	}
	if len(title) > 200 {
		errs = append(errs, domain.FieldError{Field: "title", Message: "title must be at most 200 characters"})
	}
	if radius <= 0 {
		errs = append(errs, domain.FieldError{Field: "trigger_radius_m", Message: "trigger radius must be positive"})
	} else if radius > s.cfg.MaxTriggerRadiusM {
		errs = append(errs, domain.FieldError{Field: "trigger_radius_m",
			Message: fmt.Sprintf("trigger radius must be at most %d m", s.cfg.MaxTriggerRadiusM)})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
