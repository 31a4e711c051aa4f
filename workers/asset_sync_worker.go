package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"game-economy-system/models"
	"game-economy-system/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetSyncClient polls the registry service for newly minted assets and
// mirrors them into asset_mirror. Assets are non-transferable, so a row never
// changes owner after mint — the upsert exists for re-delivery, not mutation.
type AssetSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
	Accrual    *services.AccrualService
}

func NewAssetSyncClient(db *gorm.DB, accrual *services.AccrualService) *AssetSyncClient {
	baseURL := os.Getenv("REGISTRY_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("REGISTRY_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("ECONOMY_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("ECONOMY_SERVICE_TOKEN environment variable is required for asset sync")
	}

	return &AssetSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		Accrual: accrual,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *AssetSyncClient) GetMintedAssets(ctx context.Context, since time.Time) ([]models.AssetMirror, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/assets", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call registry service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("registry service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Assets []models.AssetMirror `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode registry service response: %w", err)
	}

	return response.Assets, nil
}

// PollAssets mirrors newly minted assets and registers each one for accrual.
// Registration is the "exactly once per asset" hook the minting collaborator
// owes the accrual engine; re-polls are safe because a second register is a
// no-op here.
func PollAssets(ctx context.Context, client *AssetSyncClient, pollInterval time.Duration) {
	log.Println("Starting asset registry polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Asset polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()
			log.Printf("Polling for minted assets since %s...", lastSyncTime.Format(time.RFC3339))

			assets, err := client.GetMintedAssets(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling assets: %v", err)
				continue
			}

			count := len(assets)
			if count == 0 {
				continue
			}
			log.Printf("📥 Received %d minted asset(s) from registry service.", count)

			for i := range assets {
				assets[i].Collection = services.CollectionOf(assets[i].AssetID)
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "asset_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"owner_id",
						"collection",
						"minted_at",
						"updated_at",
					}),
				},
			).Create(&assets).Error; err != nil {
				log.Printf("❌ Failed to upsert %d asset(s) into asset_mirror: %v", count, err)
				// Do NOT update lastSyncTime on failure — retry same window next tick
				continue
			}

			registered := 0
			for _, a := range assets {
				if err := client.Accrual.Register(a.AssetID); err != nil {
					if errors.Is(err, services.ErrAlreadyRegistered) {
						continue
					}
					log.Printf("❌ Failed to register asset %d for accrual: %v", a.AssetID, err)
					continue
				}
				registered++
			}

			lastSyncTime = logTime
			log.Printf("✅ Mirrored %d asset(s), registered %d new for accrual.", count, registered)
		}
	}
}

// GetAssetByID queries the local mirror.
func GetAssetByID(db *gorm.DB, assetID uint64) (models.AssetMirror, bool, error) {
	var asset models.AssetMirror
	if err := db.Where("asset_id = ?", assetID).First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return asset, false, nil
		}
		return asset, false, err
	}
	return asset, true, nil
}
