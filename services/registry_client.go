// services/registry_client.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"game-economy-system/models"
	"game-economy-system/utils"

	"gorm.io/gorm"
)

var ErrAssetUnknown = errors.New("registry: asset not known")

// RegistryServiceClient talks to the external asset registry (the minting
// collaborator). The local asset_mirror table answers almost every ownerOf
// lookup; this client is the fallback for assets minted since the last sync.
type RegistryServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type ownerOfResponse struct {
	AssetID uint64 `json:"asset_id"`
	OwnerID string `json:"owner_id"`
}

func NewRegistryServiceClient(baseURL, token string) *RegistryServiceClient {
	return &RegistryServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

// OwnerOf calls /ownerOf on the registry service.
func (c *RegistryServiceClient) OwnerOf(assetID uint64) (string, error) {
	url := fmt.Sprintf("%s/api/v1/public/assets/%d/owner", c.BaseURL, assetID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrAssetUnknown
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("Registry /owner returned %d: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("registry lookup failed: %d", resp.StatusCode)
	}

	var out ownerOfResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.OwnerID, nil
}

// ownerOfAsset resolves ownerOf through the mirror, then the registry client.
func ownerOfAsset(tx *gorm.DB, registry *RegistryServiceClient, assetID uint64) (string, error) {
	var mirror models.AssetMirror
	err := tx.Where("asset_id = ?", assetID).First(&mirror).Error
	if err == nil {
		return mirror.OwnerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if registry == nil {
		return "", ErrAssetUnknown
	}
	return registry.OwnerOf(assetID)
}
