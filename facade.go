package statuswire

import (
	"fmt"

	statuswirecommand "github.com/zzstoatzz/statuswire/command"
	"github.com/zzstoatzz/statuswire/core"
	statuswirequery "github.com/zzstoatzz/statuswire/query"
)

// CommandQueryService is what the facade needs from a service: every
// mutation plus the feed and ledger reads. *core.Service satisfies it.
type CommandQueryService interface {
	statuswirecommand.MutatingService
	statuswirequery.StatusReader
	statuswirequery.WebhookReader
}

type Commands struct {
	SetStatus           *statuswirecommand.SetStatusCommand
	ClearStatus         *statuswirecommand.ClearStatusCommand
	HideStatus          *statuswirecommand.HideStatusCommand
	CreateWebhook       *statuswirecommand.CreateWebhookCommand
	UpdateWebhook       *statuswirecommand.UpdateWebhookCommand
	RotateWebhookSecret *statuswirecommand.RotateWebhookSecretCommand
	DeleteWebhook       *statuswirecommand.DeleteWebhookCommand
	SendTestEvent       *statuswirecommand.SendTestEventCommand
}

type Queries struct {
	GetStatus          *statuswirequery.GetStatusQuery
	ListAuthorStatuses *statuswirequery.ListAuthorStatusesQuery
	ListRecentStatuses *statuswirequery.ListRecentStatusesQuery
	ListWebhooks       *statuswirequery.ListWebhooksQuery
	RecentDeliveries   *statuswirequery.RecentDeliveriesQuery
	ResolveHandle      *statuswirequery.ResolveHandleQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	handleReader statuswirequery.HandleReader
}

// WithHandleReader overrides the resolver behind the resolve-handle query.
// Without it the facade reuses the service's own handle resolver.
func WithHandleReader(reader statuswirequery.HandleReader) FacadeOption {
	return func(options *facadeOptions) {
		options.handleReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("statuswire: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.handleReader
	if reader == nil {
		reader = resolveHandleReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		SetStatus:           statuswirecommand.NewSetStatusCommand(service),
		ClearStatus:         statuswirecommand.NewClearStatusCommand(service),
		HideStatus:          statuswirecommand.NewHideStatusCommand(service),
		CreateWebhook:       statuswirecommand.NewCreateWebhookCommand(service),
		UpdateWebhook:       statuswirecommand.NewUpdateWebhookCommand(service),
		RotateWebhookSecret: statuswirecommand.NewRotateWebhookSecretCommand(service),
		DeleteWebhook:       statuswirecommand.NewDeleteWebhookCommand(service),
		SendTestEvent:       statuswirecommand.NewSendTestEventCommand(service),
	}
	facade.queries = Queries{
		GetStatus:          statuswirequery.NewGetStatusQuery(service),
		ListAuthorStatuses: statuswirequery.NewListAuthorStatusesQuery(service),
		ListRecentStatuses: statuswirequery.NewListRecentStatusesQuery(service),
		ListWebhooks:       statuswirequery.NewListWebhooksQuery(service),
		RecentDeliveries:   statuswirequery.NewRecentDeliveriesQuery(service),
		ResolveHandle:      statuswirequery.NewResolveHandleQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveHandleReader digs the handle resolver out of the service when the
// caller didn't supply one. A facade built without any resolver still works;
// the resolve-handle query then reports its dependency as missing.
func resolveHandleReader(service CommandQueryService) statuswirequery.HandleReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(statuswirequery.HandleReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	deps := provider.Dependencies()
	if deps.HandleResolver == nil {
		return nil
	}
	return deps.HandleResolver
}
