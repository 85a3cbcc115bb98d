package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	digcontainer "github.com/karemsaeed20020/Education-Platform-sub002/apps/api/di/dig"
	echoapi "github.com/karemsaeed20020/Education-Platform-sub002/apps/api/echo"
	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
	appfs "github.com/karemsaeed20020/Education-Platform-sub002/fs"
	jobsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/jobs"
	metricsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/metrics"
)

func main() {
	c := digcontainer.New()

	must(c.Invoke(func(
		conf *core.Config,
		loggers digcontainer.Loggers,
		db *sqlx.DB,
		validate *validator.Validate,
		translator ut.Translator,
		metrics *metricsvc.Metrics,
		jobs *jobsvc.Scheduler,
		server *echoapi.Server,
	) {
		apiLogger, dbLogger := loggers.API, loggers.DB

		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer apiLogger.Sync()

		user.InitValidators(validate, translator)

		core.ParseEmailTemplates(appfs.FS, "templates/email", apiLogger, false)

		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /metrics - Prometheus metrics of the API.
		// /debug/vars - build info published with expvar.

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, metrics.DebugMux(conf)); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start Jobs

		if err := jobs.Start(conf.Jobs.PurgeSpec); err != nil {
			apiLogger.Fatal(fmt.Sprintf("starting jobs: %v", err), err)
		}

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			jobs.Stop(ctx)

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
