package worker

import (
	"github.com/spec-kit/dorm-maintenance/internal/events"
	"github.com/spec-kit/dorm-maintenance/internal/service"
)

// StartActivityWorker registers the activity log handlers.
func StartActivityWorker(activity *service.ActivityLogService) {
	if activity == nil {
		return
	}
	activity.RegisterHandlers()
}

// StartEventForwarder subscribes sink to every event type. A nil sink disables forwarding.
func StartEventForwarder(dispatcher events.Dispatcher, sink *events.AMQPSink) {
	if dispatcher == nil || sink == nil {
		return
	}
	events.SubscribeAll(dispatcher, sink.Handle)
}
