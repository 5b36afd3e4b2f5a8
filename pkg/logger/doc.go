// Package logger builds *slog.Logger instances with functional options and
// injects request-scoped values (such as the request id) from context.Context
// on every log call.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "fittrack"),
//	    logger.WithContextExtractors(requestid.LogExtractor),
//	)
//	log.InfoContext(ctx, "session published", logger.UserID(id))
//
// Attribute helpers such as Error and UserID return an empty slog.Attr for
// zero values, so callers can pass them without nil checks.
package logger
