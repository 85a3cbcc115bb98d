package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/session"
	"github.com/karemsaeed20020/Education-Platform-sub002/core/user"
	emailsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/email"
	logsvc "github.com/karemsaeed20020/Education-Platform-sub002/services/logger"
	"github.com/karemsaeed20020/Education-Platform-sub002/storage/database"
	sqlxrepos "github.com/karemsaeed20020/Education-Platform-sub002/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	zl := logsvc.NewZap(conf, "admin")
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(false)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(zl, err)
	defer func() { _ = db.Close() }()

	// set up services
	translator := core.NewTranslator()
	validate := core.NewValidate(translator)
	user.InitValidators(validate, translator)

	usrRepo := sqlxrepos.NewUserRepository(db)

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   user.NewService(conf, usrRepo, emailsvc.NewConsoleService(conf, logger), logger),
		usrRepo:  usrRepo,
		sessions: session.NewStore(sqlxrepos.NewSessionRepository(db), conf.Server.JWTExpirationDelta),
		validate: validate,
		out:      os.Stdout,
	}
	if err = cli.run(os.Args[1:]); err != nil {
		zl.Error("admin command failed", zap.Error(err))
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(zl *zap.Logger, err error) {
	if err != nil {
		zl.Fatal("admin setup failed", zap.Error(err))
	}
}
