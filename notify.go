package conversation

import "log/slog"

// Notifier shows short messages to the user.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Info(msg string) {
	n.logger().Info("notification", "message", msg)
}

func (n LogNotifier) Error(msg string) {
	n.logger().Warn("notification", "message", msg)
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}
