package sqlstore

import "github.com/zzstoatzz/statuswire/core"

var (
	_ core.StatusStore            = (*StatusStore)(nil)
	_ core.SubscriptionStore      = (*SubscriptionStore)(nil)
	_ core.DeliveryStore          = (*DeliveryStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
