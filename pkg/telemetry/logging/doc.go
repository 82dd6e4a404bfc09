// Package logging builds the process-wide structured logger.
//
// Loggers wrap log/slog with a JSON or text handler. The level lives in a
// slog.LevelVar so it can be changed while the process runs, which is how a
// configuration reload applies a new telemetry.logging.level.
//
// Task and record identifiers stored on a context with WithTaskID,
// WithTaskType and WithUser are added to every record logged through the
// *Context methods. Attributes whose key looks like a credential are masked
// before they reach the output:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	logger.Install()
//
//	ctx = logging.WithTaskID(ctx, task.ID)
//	slog.InfoContext(ctx, "task started", "type", task.Type)
package logging
