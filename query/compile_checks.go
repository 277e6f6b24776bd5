package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/zzstoatzz/statuswire/core"
)

var (
	_ gocmd.Querier[GetStatusMessage, core.StatusRecord]             = (*GetStatusQuery)(nil)
	_ gocmd.Querier[ListAuthorStatusesMessage, []core.StatusRecord]  = (*ListAuthorStatusesQuery)(nil)
	_ gocmd.Querier[ListRecentStatusesMessage, []core.StatusRecord]  = (*ListRecentStatusesQuery)(nil)
	_ gocmd.Querier[ListWebhooksMessage, []core.WebhookSubscription] = (*ListWebhooksQuery)(nil)
	_ gocmd.Querier[RecentDeliveriesMessage, []core.DeliveryAttempt] = (*RecentDeliveriesQuery)(nil)
	_ gocmd.Querier[ResolveHandleMessage, string]                    = (*ResolveHandleQuery)(nil)
)
