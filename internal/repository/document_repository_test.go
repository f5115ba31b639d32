package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDocRepo(t *testing.T) DocumentRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	repo, err := NewDocumentRepository(db)
	require.NoError(t, err)
	return repo
}

func TestDocumentCreateAndGet(t *testing.T) {
	repo := setupDocRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "actions", map[string]any{
		"description": "limpieza de parque",
		"category":    "limpieza",
		"validated":   false,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := repo.Get(ctx, "actions", id)
	require.NoError(t, err)
	assert.Equal(t, "limpieza de parque", doc["description"])
	assert.Equal(t, false, doc["validated"])
	assert.Equal(t, id, doc["id"])
	// 时间戳由服务端写入
	assert.IsType(t, time.Time{}, doc["created_at"])

	_, err = repo.Get(ctx, "otra-coleccion", id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDocumentListNewestFirst(t *testing.T) {
	repo := setupDocRepo(t)
	ctx := context.Background()

	for _, desc := range []string{"primera", "segunda", "tercera"} {
		_, err := repo.Create(ctx, "actions", map[string]any{"description": desc})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	_, err := repo.Create(ctx, "reports", map[string]any{"description": "ajena"})
	require.NoError(t, err)

	docs, err := repo.List(ctx, "actions")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "tercera", docs[0]["description"])
	assert.Equal(t, "primera", docs[2]["description"])
}

func TestDocumentUpdateMergesPatch(t *testing.T) {
	repo := setupDocRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "actions", map[string]any{
		"description": "reciclaje",
		"validated":   false,
	})
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, "actions", id, map[string]any{"validated": true}))

	doc, err := repo.Get(ctx, "actions", id)
	require.NoError(t, err)
	assert.Equal(t, true, doc["validated"])
	// 未出现在 patch 里的字段保持原值
	assert.Equal(t, "reciclaje", doc["description"])

	err = repo.Update(ctx, "actions", "no-such-id", map[string]any{"validated": true})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
