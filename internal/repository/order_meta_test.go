package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/config"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func setupMetaDB(t *testing.T) *gorm.DB {
	db, err := InitDB(config.Config{DatabaseURL: "sqlite://:memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestOrderMetaRepository(t *testing.T) {
	db := setupMetaDB(t)
	repo := NewOrderMetaRepository(db)
	ctx := context.Background()

	t.Run("Get Missing", func(t *testing.T) {
		value, ok, err := repo.Get(ctx, 1, "missing")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("Add Get Exists", func(t *testing.T) {
		assert.NoError(t, repo.Add(ctx, 1, "color", "blue"))

		value, ok, err := repo.Get(ctx, 1, "color")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "blue", value)

		exists, err := repo.Exists(ctx, 1, "color")
		assert.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Exists(ctx, 2, "color")
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Update Existing And Missing", func(t *testing.T) {
		assert.NoError(t, repo.Update(ctx, 1, "color", "red"))
		value, _, _ := repo.Get(ctx, 1, "color")
		assert.Equal(t, "red", value)

		assert.NoError(t, repo.Update(ctx, 3, "size", "L"))
		value, ok, _ := repo.Get(ctx, 3, "size")
		assert.True(t, ok)
		assert.Equal(t, "L", value)
	})

	t.Run("Delete", func(t *testing.T) {
		assert.NoError(t, repo.Delete(ctx, 1, "color"))
		_, ok, err := repo.Get(ctx, 1, "color")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("OrderIDsWithKey", func(t *testing.T) {
		repo.Add(ctx, 10, "blob", `{"eddct_campaign":{"source":"a"}}`)
		repo.Add(ctx, 11, "blob", `{"other":1}`)
		repo.Add(ctx, 12, "blob", `{"eddct_campaign":{"source":"b"}}`)

		ids, err := repo.OrderIDsWithKey(ctx, "blob", "eddct_campaign")
		assert.NoError(t, err)
		assert.Equal(t, []uint{10, 12}, ids)

		ids, err = repo.OrderIDsWithKey(ctx, "blob", "")
		assert.NoError(t, err)
		assert.Equal(t, []uint{10, 11, 12}, ids)
	})

	t.Run("Transaction Rollback", func(t *testing.T) {
		err := repo.Transaction(ctx, func(tx *OrderMetaRepository) error {
			if err := tx.Add(ctx, 20, "k", "v"); err != nil {
				return err
			}
			return errors.New("boom")
		})
		assert.Error(t, err)

		_, ok, err := repo.Get(ctx, 20, "k")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DB Error", func(t *testing.T) {
		dbErr := setupMetaDB(t)
		dbErr.Migrator().DropTable(&models.OrderMeta{})
		repoErr := NewOrderMetaRepository(dbErr)

		_, _, err := repoErr.Get(ctx, 1, "k")
		assert.Error(t, err)
		assert.Error(t, repoErr.Add(ctx, 1, "k", "v"))
	})
}
