package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/ebd/apps/api/echo"
	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/announcement"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/comment"
	"github.com/trezcool/ebd/core/dashboard"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/reader"
	"github.com/trezcool/ebd/core/response"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
	blobsvc "github.com/trezcool/ebd/services/blob"
	cachesvc "github.com/trezcool/ebd/services/cache"
	emailsvc "github.com/trezcool/ebd/services/email"
	identitysvc "github.com/trezcool/ebd/services/identity"
	logsvc "github.com/trezcool/ebd/services/logger"
	rendersvc "github.com/trezcool/ebd/services/render"
	"github.com/trezcool/ebd/storage/database"
	firestoredb "github.com/trezcool/ebd/storage/database/firestore"
	"github.com/trezcool/ebd/storage/mirror"
)

type SyncLoggerParam struct {
	dig.In
	Logger core.Logger `name:"syncLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newSyncLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "SYNC : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam SyncLoggerParam) core.DocumentDB {
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	return db
}

func newStore(db core.DocumentDB, loggerParam SyncLoggerParam, conf *core.Config) *mirror.Store {
	return mirror.NewStore(db, loggerParam.Logger, conf)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newBlobStore(conf *core.Config, logger core.Logger) core.BlobStore {
	blobs, err := blobsvc.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob storage: %v", err), err)
	}
	return blobs
}

// newIdentityProvider verifies external sign-ins against the Firebase project of the database.
// Other engines have no identity provider.
func newIdentityProvider(db core.DocumentDB, logger core.Logger) session.IdentityProvider {
	fdb, ok := db.(*firestoredb.DB)
	if !ok {
		return identitysvc.NewDisabledProvider()
	}
	client, err := fdb.Auth(context.Background())
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up firebase auth: %v", err), err)
	}
	return identitysvc.NewFirebaseProvider(client)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newSyncLogger, dig.Name("syncLogger")))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	// storage
	must(c.Provide(newDB))
	must(c.Provide(newStore))
	must(c.Provide(mirror.NewUserRepository))
	must(c.Provide(mirror.NewClassRepository))
	must(c.Provide(mirror.NewMagazineRepository))
	must(c.Provide(mirror.NewAttendanceRepository))
	must(c.Provide(mirror.NewAnnouncementRepository))
	must(c.Provide(mirror.NewCommentRepository))
	must(c.Provide(mirror.NewResponseRepository))

	// services
	must(c.Provide(newEmailService))
	must(c.Provide(newBlobStore))
	must(c.Provide(rendersvc.NewPDFRenderer))
	must(c.Provide(newIdentityProvider))
	must(c.Provide(cachesvc.New))

	// domain
	must(c.Provide(user.NewService))
	must(c.Provide(class.NewService))
	must(c.Provide(magazine.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(announcement.NewService))
	must(c.Provide(comment.NewService))
	must(c.Provide(response.NewService))
	must(c.Provide(reader.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(session.NewManager))
	must(c.Provide(session.NewResolver))

	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
