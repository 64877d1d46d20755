package repository

import (
	"github.com/vidlingo/dub-orchestrator/infra"
	"gorm.io/gorm"
)

type Repository struct {
	DubJobRepo *DubJobRepository
	VideoRepo  *VideoRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	repository = &Repository{
		DubJobRepo: NewDubJobRepository(infra.Postgres.DB),
		VideoRepo:  NewVideoRepository(infra.Postgres.DB),
	}
	return repository
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}

func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return &Repository{
		DubJobRepo: NewDubJobRepository(tx),
		VideoRepo:  NewVideoRepository(tx),
	}
}
