package entities

// HitPoints tracks a combatant's health. Current may go below zero (degree of
// failure in some rule systems) and Temporary may push effective HP above Max;
// neither is clamped here.
type HitPoints struct {
	Current   int32 `json:"current"`
	Max       int32 `json:"max"`
	Temporary int32 `json:"temporary"`
}

// InitiativeEntry is one combatant's turn-tracking record. Ordering is a
// derived view sorted descending by Score; no sequence index is stored.
type InitiativeEntry struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	CharacterID string     `json:"character_id,omitempty"`
	DisplayName string     `json:"display_name"`
	Score       int32      `json:"score"`
	IsActive    bool       `json:"is_active"`
	Conditions  []string   `json:"conditions,omitempty"`
	HitPoints   *HitPoints `json:"hit_points,omitempty"`
}
