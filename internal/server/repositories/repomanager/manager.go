package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docmark/internal/dbx"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/smtpconfigs"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Documents(db dbx.DBTX) documents.Repository
	ApiKeys(db dbx.DBTX) apikeys.Repository
	SmtpConfigs(db dbx.DBTX) smtpconfigs.Repository
}
