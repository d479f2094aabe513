// Package access holds the role capability table. Handlers ask Can(role,
// action) instead of repeating inline role comparisons.
package access

import "BeatStudio/model"

// Action names every permission-gated operation.
type Action string

const (
	UploadBeat       Action = "beat.upload"
	EditAnyBeat      Action = "beat.edit_any"
	EditOwnBeat      Action = "beat.edit_own"
	ManageRecordings Action = "recording.manage"
	ManageBookings   Action = "booking.manage"
	ManageNews       Action = "news.manage"
	StaffChat        Action = "chat.staff"
)

var capabilities = map[string]map[Action]bool{
	model.RoleUser: {
		EditOwnBeat: true,
	},
	model.RoleBeatmaker: {
		UploadBeat:  true,
		EditOwnBeat: true,
	},
	model.RoleAdmin: {
		UploadBeat:       true,
		EditAnyBeat:      true,
		EditOwnBeat:      true,
		ManageRecordings: true,
		ManageBookings:   true,
		ManageNews:       true,
		StaffChat:        true,
	},
}

// Can reports whether the role is allowed to perform the action.
// Unknown roles have no capabilities.
func Can(role string, action Action) bool {
	return capabilities[role][action]
}
