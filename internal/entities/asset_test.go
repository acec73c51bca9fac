package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KirkDiggler/vtt-api/internal/entities"
)

func TestAssetTypeValid(t *testing.T) {
	for _, at := range []entities.AssetType{
		entities.AssetTypeMap,
		entities.AssetTypeHandout,
		entities.AssetTypeImage,
		entities.AssetTypeAudio,
		entities.AssetTypeVideo,
		entities.AssetTypeToken,
		entities.AssetTypeOther,
	} {
		assert.True(t, at.Valid(), "expected %q to be valid", at)
	}

	assert.False(t, entities.AssetType("spreadsheet").Valid())
	assert.False(t, entities.AssetType("").Valid())
}

func TestAssetVisibility(t *testing.T) {
	tests := []struct {
		name       string
		visibility entities.AssetVisibility
		role       entities.ParticipantRole
		visible    bool
	}{
		{"gm_only hidden from players", entities.VisibilityGMOnly, entities.RolePlayer, false},
		{"gm_only visible to gm", entities.VisibilityGMOnly, entities.RoleGM, true},
		{"players visible to players", entities.VisibilityPlayers, entities.RolePlayer, true},
		{"everyone visible to players", entities.VisibilityEveryone, entities.RolePlayer, true},
		{"zero value hidden from players", entities.AssetVisibility(""), entities.RolePlayer, false},
		{"zero value visible to gm", entities.AssetVisibility(""), entities.RoleGM, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, tt.visibility.VisibleTo(tt.role))
		})
	}
}
