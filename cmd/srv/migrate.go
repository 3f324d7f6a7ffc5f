package main

import (
	"github.com/questforge/backend/internal/entity"
	"github.com/urfave/cli/v2"
)

func (s *srv) migrate(ct *cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.loadDatabase()

	return entity.MigrateTable(s.migrationContext())
}
