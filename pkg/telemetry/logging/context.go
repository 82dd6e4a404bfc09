package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// TaskIDKey is the context key for scheduled task IDs.
	TaskIDKey contextKey = "task_id"

	// TaskTypeKey is the context key for task types.
	TaskTypeKey contextKey = "task_type"

	// UserKey is the context key for the acting user.
	UserKey contextKey = "user_id"
)

// WithTaskID adds a task ID to the context.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, TaskIDKey, taskID)
}

// GetTaskID retrieves the task ID from the context.
func GetTaskID(ctx context.Context) string {
	if id, ok := ctx.Value(TaskIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTaskType adds a task type to the context.
func WithTaskType(ctx context.Context, taskType string) context.Context {
	return context.WithValue(ctx, TaskTypeKey, taskType)
}

// GetTaskType retrieves the task type from the context.
func GetTaskType(ctx context.Context) string {
	if typ, ok := ctx.Value(TaskTypeKey).(string); ok {
		return typ
	}
	return ""
}

// WithUser adds a user identifier to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the user identifier from the context.
func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}

func extractContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var fields []slog.Attr
	if id := GetTaskID(ctx); id != "" {
		fields = append(fields, slog.String(string(TaskIDKey), id))
	}
	if typ := GetTaskType(ctx); typ != "" {
		fields = append(fields, slog.String(string(TaskTypeKey), typ))
	}
	if user := GetUser(ctx); user != "" {
		fields = append(fields, slog.String(string(UserKey), user))
	}
	return fields
}
