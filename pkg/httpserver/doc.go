// Package httpserver provides a thin net/http server wrapper with
// context-driven graceful shutdown and functional options.
//
// The binary owns signal handling; Run simply serves until the passed
// context is cancelled:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
package httpserver
