// Package bootstrap runs a service binary: it validates the typed config,
// initializes the logger, starts the registered components in order, runs
// the lifecycle hooks, prints a startup summary and shuts everything down
// on SIGINT/SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(cache)
//	app.RegisterComponent(srv)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Short-lived binaries such as command line clients use RunTask instead.
package bootstrap
