package model

import "time"

// UtilityType is the grenade kind a lineup is for.
type UtilityType string

const (
	UtilitySmoke   UtilityType = "smoke"
	UtilityFlash   UtilityType = "flash"
	UtilityMolotov UtilityType = "molotov"
	UtilityHE      UtilityType = "he"
)

// Valid reports whether t is one of the known utility types.
func (t UtilityType) Valid() bool {
	switch t {
	case UtilitySmoke, UtilityFlash, UtilityMolotov, UtilityHE:
		return true
	}
	return false
}

// Team is the side a lineup is thrown from.
type Team string

const (
	TeamT  Team = "T"
	TeamCT Team = "CT"
)

func (t Team) Valid() bool {
	return t == TeamT || t == TeamCT
}

// Position is a point on a map image in percentage coordinates, so the same
// lineup renders correctly at any image size.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Valid reports whether both coordinates lie within [0, 100].
func (p Position) Valid() bool {
	return p.X >= 0 && p.X <= 100 && p.Y >= 0 && p.Y <= 100
}

// Map is a playable map. Maps are seeded by migration and read-only at runtime.
type Map struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Utility is a landing point: where the grenade ends up.
//
// CreatedBy is the owner. It is set once at creation and never updated; every
// ownership check for throwing points and media eventually lands here.
type Utility struct {
	ID          string      `json:"id"`
	MapID       string      `json:"mapId"`
	UtilityType UtilityType `json:"utilityType"`
	Team        Team        `json:"team"`
	Position    Position    `json:"position"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	ThrowingPoints []ThrowingPoint `json:"throwingPoints,omitempty"`
	Media          []Media         `json:"media,omitempty"`
}

// ThrowingPoint is a spot a utility can be thrown from. It has no owner
// column of its own; ownership is always derived through its utility.
type ThrowingPoint struct {
	ID          string    `json:"id"`
	UtilityID   string    `json:"utilityId"`
	Position    Position  `json:"position"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Media []Media `json:"media,omitempty"`
}
