package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

type Repos struct {
	Records  repos.IndexedRecordRepo
	Accounts repos.LinkedAccountRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Records:  repos.NewIndexedRecordRepo(db, log),
		Accounts: repos.NewLinkedAccountRepo(db, log),
	}
}
