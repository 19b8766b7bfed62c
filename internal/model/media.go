package model

import "time"

// MediaType is the kind of file a Media row points at.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaGIF   MediaType = "gif"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaImage, MediaVideo, MediaGIF:
		return true
	}
	return false
}

// Media is a photo or video attached to a utility, a throwing point, or
// nothing yet.
//
// At most one of UtilityID and ThrowingPointID is set. When neither is set
// the media is unattached and UserID names its owner.
type Media struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	Type            MediaType `json:"type"`
	Title           string    `json:"title,omitempty"`
	Description     string    `json:"description,omitempty"`
	UserID          *string   `json:"userId,omitempty"`
	UtilityID       *string   `json:"utilityId,omitempty"`
	ThrowingPointID *string   `json:"throwingPointId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Attached reports whether the media hangs off a utility or throwing point.
func (m *Media) Attached() bool {
	return m.UtilityID != nil || m.ThrowingPointID != nil
}

// MediaOwnership is the resolved owner chain of one media row: the owner
// reachable through each of the three storage shapes. Empty strings mean the
// path is not populated.
type MediaOwnership struct {
	MediaID            string
	DirectOwner        string // media.user_id
	UtilityOwner       string // media.utility.created_by
	ThrowingPointOwner string // media.throwing_point.utility.created_by
}
