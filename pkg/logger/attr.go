package logger

import (
	"log/slog"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under the key "error". A nil error yields an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records the notification record identifier.
func NotificationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("notification_id", id)
}

// RecipientID records the recipient (user) identifier.
func RecipientID(id int64) slog.Attr {
	return slog.Int64("recipient_id", id)
}

// Channel records the delivery channel name.
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Status records a delivery status.
func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// Template records a template name. Empty names are dropped.
func Template(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("template", name)
}

// Setting records a settings key under its category.
func Setting(category, key string) slog.Attr {
	return slog.String("setting", category+"."+key)
}

// Duration records an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Job records a worker-pool job name.
func Job(name string) slog.Attr {
	return slog.String("job", name)
}
