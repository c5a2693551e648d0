package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brightcart/auth-service/internal/domain"
	pkgkafka "github.com/brightcart/auth-service/pkg/kafka"
)

// Kafka topic constants for auth domain events.
const (
	TopicEmailJob       = "brightcart.notification.email"
	TopicBreachDetected = "brightcart.auth.breach_detected"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from the auth service.
const SourceAuthService = "auth-service"

// Email template kinds consumed by the notification service.
const (
	EmailKindVerification  = "verification"
	EmailKindWelcome       = "welcome"
	EmailKindPasswordReset = "password_reset"
)

// EmailJobData is the payload for a notification.email event.
type EmailJobData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Kind      string `json:"kind"`
	ActionURL string `json:"action_url,omitempty"`
}

// BreachDetectedData is the payload for an auth.breach_detected event.
type BreachDetectedData struct {
	UserID      string `json:"user_id"`
	TokenFamily string `json:"token_family"`
	Reason      string `json:"reason"`
}

// Producer publishes auth domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishVerificationEmail publishes an email job carrying the verification link.
func (p *Producer) PublishVerificationEmail(ctx context.Context, user *domain.User, actionURL string) error {
	return p.publishEmail(ctx, user.ID, user.Email, EmailKindVerification, actionURL)
}

// PublishWelcomeEmail publishes an email job sent after a user verifies their address.
func (p *Producer) PublishWelcomeEmail(ctx context.Context, user *domain.User) error {
	return p.publishEmail(ctx, user.ID, user.Email, EmailKindWelcome, "")
}

// PublishPasswordResetEmail publishes an email job carrying the reset link.
func (p *Producer) PublishPasswordResetEmail(ctx context.Context, user *domain.User, actionURL string) error {
	return p.publishEmail(ctx, user.ID, user.Email, EmailKindPasswordReset, actionURL)
}

func (p *Producer) publishEmail(ctx context.Context, userID, email, kind, actionURL string) error {
	data := EmailJobData{
		UserID:    userID,
		Email:     email,
		Kind:      kind,
		ActionURL: actionURL,
	}

	event, err := pkgkafka.NewEvent(TopicEmailJob, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create notification.email event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicEmailJob, event); err != nil {
		return fmt.Errorf("publish notification.email event: %w", err)
	}

	p.logger.DebugContext(ctx, "published notification.email event",
		slog.String("user_id", userID),
		slog.String("kind", kind),
	)

	return nil
}

// PublishBreachDetected publishes an auth.breach_detected event after a
// refresh token family has been revoked for reuse.
func (p *Producer) PublishBreachDetected(ctx context.Context, userID, tokenFamily, reason string) error {
	data := BreachDetectedData{
		UserID:      userID,
		TokenFamily: tokenFamily,
		Reason:      reason,
	}

	event, err := pkgkafka.NewEvent(TopicBreachDetected, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create auth.breach_detected event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicBreachDetected, event); err != nil {
		return fmt.Errorf("publish auth.breach_detected event: %w", err)
	}

	p.logger.WarnContext(ctx, "published auth.breach_detected event",
		slog.String("user_id", userID),
		slog.String("token_family", tokenFamily),
		slog.String("reason", reason),
	)

	return nil
}
