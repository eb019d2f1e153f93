package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/announcement"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/dashboard"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/user"
	blobsvc "github.com/trezcool/ebd/services/blob"
	emailsvc "github.com/trezcool/ebd/services/email"
	logsvc "github.com/trezcool/ebd/services/logger"
	"github.com/trezcool/ebd/storage/database"
	"github.com/trezcool/ebd/storage/mirror"
)

var logger *logsvc.RollbarLogger

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)

	// set up DB & mirror
	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	errAndDie(err)
	defer db.Close()

	store := mirror.NewStore(db, logger, conf)
	store.Start(ctx)
	defer store.Stop()

	syncCtx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
	defer cancel()
	errAndDie(store.WaitSynced(syncCtx))

	// set up services
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	blobs, err := blobsvc.New(ctx, conf)
	errAndDie(err)

	usrSvc := user.NewService(mirror.NewUserRepository(store), emailsvc.NewConsoleService(logger, conf), conf)
	classSvc := class.NewService(mirror.NewClassRepository(store))
	dashSvc := dashboard.NewService(
		usrSvc,
		classSvc,
		magazine.NewService(mirror.NewMagazineRepository(store), blobs, nil, logger, conf),
		attendance.NewService(mirror.NewAttendanceRepository(store), usrSvc),
		announcement.NewService(mirror.NewAnnouncementRepository(store)),
	)

	// start CLI
	cli := commandLine{
		usrSvc:   usrSvc,
		classSvc: classSvc,
		dashSvc:  dashSvc,
		validate: validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("\nerror: " + err.Error())
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
