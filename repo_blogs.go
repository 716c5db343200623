package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Blogs interface {
	repository.Repository[*Blog]

	GetBySlug(ctx context.Context, slug string) (*Blog, error)
	GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Blog, error)
}

type blogs struct {
	repository.Repository[*Blog]
	db *bun.DB
}

var _ Blogs = (*blogs)(nil)

func NewBlogsRepository(db *bun.DB) Blogs {
	repo := repository.NewRepository[*Blog](db, repository.ModelHandlers[*Blog]{
		NewRecord: func() *Blog { return &Blog{} },
		GetID: func(b *Blog) uuid.UUID {
			if b == nil {
				return uuid.Nil
			}
			return b.ID
		},
		SetID: func(b *Blog, id uuid.UUID) {
			if b != nil {
				b.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})

	return &blogs{
		Repository: repo,
		db:         db,
	}
}

func (a *blogs) GetBySlug(ctx context.Context, slug string) (*Blog, error) {
	return a.GetBySlugTx(ctx, a.db, slug)
}

func (a *blogs) GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Blog, error) {
	record := &Blog{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.slug = ?", slug).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"slug": slug,
				})
		}
		return nil, err
	}

	return record, nil
}
