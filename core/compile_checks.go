package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ StatusService    = (*Service)(nil)
	_ ConfigProvider   = (*CfgxConfigProvider)(nil)
	_ OptionsResolver  = GoOptionsResolver{}
	_ RawConfigLoader  = staticRawConfigLoader{}
	_ DispatchEnqueuer = (*MemoryDispatchQueue)(nil)
	_ DispatchDequeuer = (*MemoryDispatchQueue)(nil)
	_ DispatchDelivery = (*memoryDispatchDelivery)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
