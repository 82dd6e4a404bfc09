// Package interceptor records audit events for intercepted method calls.
//
// Callers either wrap a function with Wrap, or report a finished call with
// Observe. The method name (or an explicit event type) is resolved through an
// audit.EventRegistry; unknown names become CUSTOM_EVENT records that keep
// the original method name in the description. A failed call is recorded at
// HIGH severity or above.
//
// Records are written asynchronously: Observe enqueues into a buffered
// channel drained by a single worker, so the intercepted call never waits
// on the primary store. Close stops accepting records and drains the
// channel before returning.
//
//	icpt := interceptor.New(store, audit.DefaultEventRegistry(), nil)
//	defer icpt.Close()
//
//	deleteUser := icpt.Wrap("UserService.DeleteUser", func(ctx context.Context) error {
//		return users.Delete(ctx, id)
//	})
//	err := deleteUser(interceptor.WithUser(ctx, "admin"))
package interceptor
