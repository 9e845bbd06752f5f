package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/data/repos/accounts"
	"github.com/yungbote/unifind-backend/internal/data/repos/records"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

type IndexedRecordRepo = records.IndexedRecordRepo
type LinkedAccountRepo = accounts.LinkedAccountRepo

func NewIndexedRecordRepo(db *gorm.DB, baseLog *logger.Logger) IndexedRecordRepo {
	return records.NewIndexedRecordRepo(db, baseLog)
}

func NewLinkedAccountRepo(db *gorm.DB, baseLog *logger.Logger) LinkedAccountRepo {
	return accounts.NewLinkedAccountRepo(db, baseLog)
}
