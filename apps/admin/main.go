package main

import (
	"fmt"
	"log"
	"os"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/course"
	"github.com/goosen-x/lms/core/user"
	logsvc "github.com/goosen-x/lms/services/logger"
	"github.com/goosen-x/lms/storage/database"
	sqlxrepos "github.com/goosen-x/lms/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)
	cli := commandLine{
		db:      db.DB,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, nil /* no emails */, conf),
		crsRepo: crsRepo,
		crsSvc:  course.NewService(crsRepo),
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	if cerr := db.Close(); cerr != nil {
		logger.Error("closing database", cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
