// Package logger builds *slog.Logger instances for the notification service and
// provides attribute helpers so every component names its log fields the same
// way (notification_id, recipient_id, channel, status, template, ...).
//
// New applies functional options, picks a JSON or text handler and wraps it in
// LogHandlerDecorator, which pulls request-scoped values out of the context on
// every record:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "notifier"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	logger.SetAsDefault(log)
//
//	log.LogAttrs(ctx, slog.LevelInfo, "notification delivered",
//	    logger.NotificationID(rec.ID),
//	    logger.Channel(string(rec.Channel)),
//	)
//
// Error returns an empty attribute for a nil error, so it can be passed
// unconditionally.
package logger
