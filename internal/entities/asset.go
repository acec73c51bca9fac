package entities

import "time"

// AssetType classifies a campaign asset
type AssetType string

// Asset types
const (
	AssetTypeMap     AssetType = "map"
	AssetTypeHandout AssetType = "handout"
	AssetTypeImage   AssetType = "image"
	AssetTypeAudio   AssetType = "audio"
	AssetTypeVideo   AssetType = "video"
	AssetTypeToken   AssetType = "token"
	AssetTypeOther   AssetType = "other"
)

// Valid returns true if the asset type is a known value
func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeMap, AssetTypeHandout, AssetTypeImage, AssetTypeAudio,
		AssetTypeVideo, AssetTypeToken, AssetTypeOther:
		return true
	}
	return false
}

// AssetVisibility controls who can see an asset during a session
type AssetVisibility string

// Asset visibilities
const (
	VisibilityGMOnly   AssetVisibility = "gm_only"
	VisibilityPlayers  AssetVisibility = "players"
	VisibilityEveryone AssetVisibility = "everyone"
)

// VisibleTo reports whether a participant with the given role may see an asset
// with this visibility. The zero value behaves like gm_only so an unset
// visibility never leaks to players.
func (v AssetVisibility) VisibleTo(role ParticipantRole) bool {
	switch v {
	case VisibilityEveryone, VisibilityPlayers:
		return true
	default:
		return role == RoleGM
	}
}

// AssetMetadata holds type-specific asset details as fixed fields rather than
// an open map, so code that branches on them stays exhaustive.
type AssetMetadata struct {
	Width      int32           `json:"width,omitempty"`
	Height     int32           `json:"height,omitempty"`
	DurationMS int64           `json:"duration_ms,omitempty"`
	GridWidth  int32           `json:"grid_width,omitempty"`
	GridHeight int32           `json:"grid_height,omitempty"`
	Scale      float64         `json:"scale,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Visibility AssetVisibility `json:"visibility,omitempty"`
}

// CampaignAsset is a file shared within a campaign. Upload and storage UX live
// outside this service; sessions only reference assets.
type CampaignAsset struct {
	ID         string        `json:"id"`
	CampaignID string        `json:"campaign_id"`
	SessionID  string        `json:"session_id,omitempty"`
	Name       string        `json:"name"`
	Type       AssetType     `json:"type"`
	FileURL    string        `json:"file_url"`
	MimeType   string        `json:"mime_type,omitempty"`
	UploadedBy string        `json:"uploaded_by"`
	Metadata   AssetMetadata `json:"metadata"`
	CreatedAt  time.Time     `json:"created_at"`
}
