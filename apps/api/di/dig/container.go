package dig_container

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/goosen-x/lms/apps/api/echo"
	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/dashboard"
	"github.com/goosen-x/lms/core/user"
	emailsvc "github.com/goosen-x/lms/services/email"
	logsvc "github.com/goosen-x/lms/services/logger"
	sessionsvc "github.com/goosen-x/lms/services/session"
	"github.com/goosen-x/lms/storage/database"
	inmemdb "github.com/goosen-x/lms/storage/database/inmem"
	boiledrepos "github.com/goosen-x/lms/storage/database/sqlboiler"
	sqlxrepos "github.com/goosen-x/lms/storage/database/sqlx"
)

const engineMemory = "memory"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage holds the repositories of the configured database engine.
// DB must be closed when the application stops.
type Storage struct {
	dig.Out

	DB            io.Closer
	UserRepo      user.Repository
	CourseRepo    course.Repository
	DashboardRepo dashboard.Repository
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == engineMemory {
		loggerParam.Logger.Warn("using the in-memory database: data is lost on shutdown")
		db := inmemdb.Open()
		return Storage{
			DB:            db,
			UserRepo:      inmemdb.NewUserRepository(db),
			CourseRepo:    inmemdb.NewCourseRepository(db),
			DashboardRepo: inmemdb.NewDashboardRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.MigrateUp(db.DB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	return Storage{
		DB:            db,
		UserRepo:      sqlxrepos.NewUserRepository(db),
		CourseRepo:    sqlxrepos.NewCourseRepository(db),
		DashboardRepo: boiledrepos.NewDashboardRepository(db),
	}
}

func newValidate() *validator.Validate {
	return validator.New()
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidate))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(sessionsvc.NewProvider))
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(course.NewService, dig.As(new(course.ServiceInterface))))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
