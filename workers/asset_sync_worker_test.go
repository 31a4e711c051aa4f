package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"game-economy-system/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMirrorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.AssetMirror{}))
	return db
}

func TestGetMintedAssets(t *testing.T) {
	t.Run("decodes the registry payload and forwards the service token", func(t *testing.T) {
		var gotToken, gotSince string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.Header.Get("X-Service-Token")
			gotSince = r.URL.Query().Get("since")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"assets": []models.AssetMirror{
					{ID: "a1", AssetID: 120001, OwnerID: "alice", MintedAt: 1_700_000_000},
					{ID: "a2", AssetID: 120002, OwnerID: "bob", MintedAt: 1_700_000_100},
				},
			})
		}))
		defer srv.Close()

		client := &AssetSyncClient{
			BaseURL:    srv.URL,
			Token:      "svc-token",
			HTTPClient: srv.Client(),
		}
		since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		assets, err := client.GetMintedAssets(context.Background(), since)
		require.NoError(t, err)
		require.Len(t, assets, 2)
		require.Equal(t, uint64(120001), assets[0].AssetID)
		require.Equal(t, "alice", assets[0].OwnerID)
		require.Equal(t, "svc-token", gotToken)
		require.Equal(t, "2024-01-01T00:00:00Z", gotSince)
	})

	t.Run("surfaces non-200 responses as errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		client := &AssetSyncClient{
			BaseURL:    srv.URL,
			Token:      "svc-token",
			HTTPClient: srv.Client(),
		}
		_, err := client.GetMintedAssets(context.Background(), time.Now())
		require.Error(t, err)
		require.Contains(t, err.Error(), "403")
	})
}

func TestGetAssetByID(t *testing.T) {
	db := newMirrorDB(t)
	require.NoError(t, db.Create(&models.AssetMirror{
		ID:      "a1",
		AssetID: 120001,
		OwnerID: "alice",
	}).Error)

	asset, found, err := GetAssetByID(db, 120001)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice", asset.OwnerID)

	_, found, err = GetAssetByID(db, 999999)
	require.NoError(t, err)
	require.False(t, found)
}
