package main

import (
	"github.com/goosen-x/lms/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	if err := migrateFunc(cli.db, args[0], arguments...); err != nil {
		return err
	}
	cli.printf("migrate %s: done\n", args[0])
	return nil
}
