// Package testutil wires the services on top of an in-memory database for tests.
package testutil

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

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
	emailsvc "github.com/trezcool/ebd/services/email"
	logsvc "github.com/trezcool/ebd/services/logger"
	inmemdb "github.com/trezcool/ebd/storage/database/inmem"
	"github.com/trezcool/ebd/storage/mirror"
)

// Env holds the services of a test, backed by a fresh in-memory database.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Store      *mirror.Store
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	Renderer   core.Renderer
	Blobs      core.BlobStore

	UserRepo         user.Repository
	ClassRepo        class.Repository
	MagazineRepo     magazine.Repository
	AttendanceRepo   attendance.Repository
	AnnouncementRepo announcement.Repository
	CommentRepo      comment.Repository
	ResponseRepo     response.Repository

	Users         *user.Service
	Classes       *class.Service
	Magazines     *magazine.Service
	Attendances   *attendance.Service
	Announcements *announcement.Service
	Comments      *comment.Service
	Responses     *response.Service
	Reader        *reader.Service
	Dashboard     *dashboard.Service
	Sessions      *session.Manager

	lateSnapshots bool
}

type Option func(env *Env)

// WithRenderer sets the renderer of the magazine & reader services; there is none by default.
func WithRenderer(r core.Renderer) Option {
	return func(env *Env) { env.Renderer = r }
}

// WithConfig overrides the test configuration.
func WithConfig(fn func(conf *core.Config)) Option {
	return func(env *Env) { fn(env.Conf) }
}

// WithLateSnapshots makes the mirror miss every change after its first snapshot,
// like a remote database whose changes have not arrived yet.
func WithLateSnapshots() Option {
	return func(env *Env) { env.lateSnapshots = true }
}

// LateDB delivers only the first snapshot of each subscription.
type LateDB struct {
	*inmemdb.DB
}

func (db LateDB) Listen(ctx context.Context, coll string, fn core.SnapshotFunc) error {
	var once sync.Once
	return db.DB.Listen(ctx, coll, func(docs []core.Document) {
		once.Do(func() { fn(docs) })
	})
}

// NewLogger returns a logger that discards its output.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns an initialized validator and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// NewStore opens an in-memory database and waits for its mirror to be synced.
func NewStore(t *testing.T, conf *core.Config, logger core.Logger) (*inmemdb.DB, *mirror.Store) {
	t.Helper()

	return newStore(t, conf, logger, false)
}

func newStore(t *testing.T, conf *core.Config, logger core.Logger, late bool) (*inmemdb.DB, *mirror.Store) {
	t.Helper()

	db := inmemdb.Open()
	var remote core.DocumentDB = db
	if late {
		remote = LateDB{db}
	}
	store := mirror.NewStore(remote, logger, conf)
	store.Start(context.Background())
	t.Cleanup(func() {
		store.Stop()
		_ = db.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.WaitSynced(ctx); err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return db, store
}

func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	env := &Env{Conf: core.NewTestConfig()}
	for _, opt := range opts {
		opt(env)
	}
	env.Logger = NewLogger(env.Conf)
	env.DB, env.Store = newStore(t, env.Conf, env.Logger, env.lateSnapshots)
	env.Validate, env.Translator = NewValidator()
	env.Mail = emailsvc.NewConsoleServiceMock(env.Logger, env.Conf)
	env.Blobs = blobsvc.NewInlineStore()

	env.UserRepo = mirror.NewUserRepository(env.Store)
	env.ClassRepo = mirror.NewClassRepository(env.Store)
	env.MagazineRepo = mirror.NewMagazineRepository(env.Store)
	env.AttendanceRepo = mirror.NewAttendanceRepository(env.Store)
	env.AnnouncementRepo = mirror.NewAnnouncementRepository(env.Store)
	env.CommentRepo = mirror.NewCommentRepository(env.Store)
	env.ResponseRepo = mirror.NewResponseRepository(env.Store)

	env.Users = user.NewService(env.UserRepo, env.Mail, env.Conf)
	env.Classes = class.NewService(env.ClassRepo)
	env.Magazines = magazine.NewService(env.MagazineRepo, env.Blobs, env.Renderer, env.Logger, env.Conf)
	env.Attendances = attendance.NewService(env.AttendanceRepo, env.Users)
	env.Announcements = announcement.NewService(env.AnnouncementRepo)
	env.Comments = comment.NewService(env.CommentRepo)
	env.Responses = response.NewService(env.ResponseRepo, env.Conf)
	env.Reader = reader.NewService(env.Renderer, env.Magazines, env.Responses, env.Logger)
	env.Dashboard = dashboard.NewService(env.Users, env.Classes, env.Magazines, env.Attendances, env.Announcements)
	env.Sessions = session.NewManager()
	t.Cleanup(env.Sessions.Close)
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, pwd, role, classID string,
	isApproved bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0]
	}
	usr := user.User{
		ID:         core.NewID("u"),
		Name:       name,
		Role:       role,
		ClassID:    classID,
		IsApproved: isApproved,
		CreatedAt:  tstamp.UnixNano() / int64(time.Millisecond),
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	if err := repo.SaveUser(context.Background(), usr); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo class.Repository, name string) class.Class {
	t.Helper()

	cls := class.Class{ID: core.NewID("cls"), Name: name}
	if err := repo.SaveClass(context.Background(), cls); err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

// CreateMagazine saves a magazine of pageCount pages. Pages get an image when imageURL is set.
func CreateMagazine(t *testing.T, repo magazine.Repository, title, classID, pdfURL string, pageCount int, imageURL string) magazine.Magazine {
	t.Helper()

	mag := magazine.Magazine{
		ID:          core.NewID("mag"),
		Title:       title,
		Description: magazine.DefaultDescription,
		CoverURL:    magazine.PlaceholderCover,
		PDFURL:      pdfURL,
		ClassID:     classID,
		CreatedAt:   core.NowMillis(),
	}
	for i := 0; i < pageCount; i++ {
		mag.Pages = append(mag.Pages, magazine.Page{
			ID:         core.NewID("pg"),
			PageNumber: i + 1,
			ImageURL:   imageURL,
			Exercises:  []magazine.Exercise{},
		})
	}
	if err := repo.SaveMagazine(context.Background(), mag); err != nil {
		t.Fatalf("CreateMagazine() failed: %v", err)
	}
	return mag
}

func CreateAnnouncement(t *testing.T, repo announcement.Repository, classID, title string, createdAt int64) announcement.Announcement {
	t.Helper()

	ann := announcement.Announcement{
		ID:         core.NewID("ann"),
		ClassID:    classID,
		Title:      title,
		Message:    "<p>" + title + "</p>",
		AuthorName: "Teacher",
		Date:       time.Unix(0, createdAt*int64(time.Millisecond)).Format("02/01/2006"),
		CreatedAt:  createdAt,
	}
	if err := repo.SaveAnnouncement(context.Background(), ann); err != nil {
		t.Fatalf("CreateAnnouncement() failed: %v", err)
	}
	return ann
}

func CreateAttendance(t *testing.T, repo attendance.Repository, classID string, usr user.User, date string, isPresent bool) attendance.Attendance {
	t.Helper()

	att := attendance.Attendance{
		ID:        attendance.Key(classID, usr.ID, date),
		ClassID:   classID,
		UserID:    usr.ID,
		UserName:  usr.Name,
		Date:      date,
		IsPresent: isPresent,
	}
	if err := repo.SaveAttendance(context.Background(), att); err != nil {
		t.Fatalf("CreateAttendance() failed: %v", err)
	}
	return att
}
