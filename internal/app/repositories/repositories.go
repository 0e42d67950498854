package repositories

import "github.com/yigit/notespace/internal/db"

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository         *UserRepository
	TopicRepository        *TopicRepository
	NoteRepository         *NoteRepository
	MetaDocumentRepository *MetaDocumentRepository
	TokenRepository        *TokenRepository
}

// NewRepositories initializes all repositories
func NewRepositories(conn db.DBTX) *Repositories {
	return &Repositories{
		UserRepository:         NewUserRepository(conn),
		TopicRepository:        NewTopicRepository(conn),
		NoteRepository:         NewNoteRepository(conn),
		MetaDocumentRepository: NewMetaDocumentRepository(conn),
		TokenRepository:        NewTokenRepository(conn),
	}
}
