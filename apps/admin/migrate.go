package main

import (
	"context"

	"github.com/orishlabs/orish/storage/database"
)

var migrateRunFunc = database.RunMigrationCommand // mockable

func (cli *commandLine) migrate(args []string) error {
	var extra []string
	if len(args) > 1 {
		extra = args[1:]
	}
	return migrateRunFunc(context.Background(), args[0], cli.db, extra...)
}
