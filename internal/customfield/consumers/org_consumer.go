// Package consumers keeps the local org replica in step with the org service.
package consumers

import (
	"context"
	"strings"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/config"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
	"github.com/peoplebase/peoplebase-backend/pkg/messaging"
	"github.com/peoplebase/peoplebase-backend/pkg/permissions"
)

// OrgWriter is the write side of the org replica
type OrgWriter interface {
	UpsertCompany(ctx context.Context, c domain.Company) error
	DeleteCompany(ctx context.Context, id int64) error
	UpsertAccount(ctx context.Context, a domain.Account) error
	UpsertMembership(ctx context.Context, m domain.Membership) error
	DeleteMembership(ctx context.Context, accountID, companyID int64) error
}

// OrgEventConsumer consumes org events
type OrgEventConsumer struct {
	consumer *messaging.Consumer
	org      OrgWriter
	logger   *logger.Logger
}

// NewOrgEventConsumer creates a consumer bound to every org.* event
func NewOrgEventConsumer(rmq *messaging.RabbitMQ, org OrgWriter, log *logger.Logger) (*OrgEventConsumer, error) {
	if err := rmq.DeclareDeadLetterQueue(config.ServiceName); err != nil {
		return nil, err
	}

	consumer, err := messaging.NewConsumer(rmq, config.ServiceName+".org-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeOrgEvents, "org.#"); err != nil {
		return nil, err
	}

	c := newOrgEventConsumer(org, log)
	c.consumer = consumer
	c.register(consumer.RegisterHandler)
	return c, nil
}

func newOrgEventConsumer(org OrgWriter, log *logger.Logger) *OrgEventConsumer {
	return &OrgEventConsumer{
		org:    org,
		logger: log.WithComponent("org-replica"),
	}
}

func (c *OrgEventConsumer) register(add func(string, messaging.MessageHandler)) {
	add(messaging.EventCompanyUpserted, c.handleCompanyUpserted)
	add(messaging.EventCompanyDeleted, c.handleCompanyDeleted)
	add(messaging.EventAccountUpserted, c.handleAccountUpserted)
	add(messaging.EventMembershipGranted, c.handleMembershipGranted)
	add(messaging.EventMembershipRevoked, c.handleMembershipRevoked)
}

// Start starts consuming messages
func (c *OrgEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *OrgEventConsumer) handleCompanyUpserted(ctx context.Context, event *messaging.Event) error {
	var data messaging.CompanyUpsertedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Int64("company_id", data.CompanyID).
		Interface("parent_id", data.ParentID).
		Msg("received company upserted event")

	if data.ParentID != nil && *data.ParentID == data.CompanyID {
		c.logger.Warn().Int64("company_id", data.CompanyID).Msg("company is its own parent, storing without parent")
		data.ParentID = nil
	}

	return c.org.UpsertCompany(ctx, domain.Company{
		ID:       data.CompanyID,
		ParentID: data.ParentID,
		Name:     data.Name,
	})
}

func (c *OrgEventConsumer) handleCompanyDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.CompanyDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().Int64("company_id", data.CompanyID).Msg("received company deleted event")

	return c.org.DeleteCompany(ctx, data.CompanyID)
}

func (c *OrgEventConsumer) handleAccountUpserted(ctx context.Context, event *messaging.Event) error {
	var data messaging.AccountUpsertedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Int64("account_id", data.AccountID).
		Bool("is_active", data.IsActive).
		Msg("received account upserted event")

	return c.org.UpsertAccount(ctx, domain.Account{
		ID:       data.AccountID,
		Username: data.Username,
		IsActive: data.IsActive,
	})
}

func (c *OrgEventConsumer) handleMembershipGranted(ctx context.Context, event *messaging.Event) error {
	var data messaging.MembershipGrantedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	role := strings.ToLower(strings.TrimSpace(data.Role))
	if !permissions.IsValidRole(role) {
		// retrying cannot fix an unknown role
		c.logger.Warn().
			Int64("account_id", data.AccountID).
			Int64("company_id", data.CompanyID).
			Str("role", data.Role).
			Msg("ignoring membership with unknown role")
		return nil
	}

	c.logger.Info().
		Int64("account_id", data.AccountID).
		Int64("company_id", data.CompanyID).
		Str("role", role).
		Msg("received membership granted event")

	return c.org.UpsertMembership(ctx, domain.Membership{
		AccountID: data.AccountID,
		CompanyID: data.CompanyID,
		Role:      role,
	})
}

func (c *OrgEventConsumer) handleMembershipRevoked(ctx context.Context, event *messaging.Event) error {
	var data messaging.MembershipRevokedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Int64("account_id", data.AccountID).
		Int64("company_id", data.CompanyID).
		Msg("received membership revoked event")

	return c.org.DeleteMembership(ctx, data.AccountID, data.CompanyID)
}
