package access

import (
	"testing"

	"BeatStudio/model"

	"github.com/stretchr/testify/assert"
)

func TestRoleCapabilities(t *testing.T) {
	assert.False(t, Can(model.RoleUser, UploadBeat))
	assert.True(t, Can(model.RoleUser, EditOwnBeat))
	assert.False(t, Can(model.RoleUser, ManageNews))

	assert.True(t, Can(model.RoleBeatmaker, UploadBeat))
	assert.False(t, Can(model.RoleBeatmaker, EditAnyBeat))
	assert.False(t, Can(model.RoleBeatmaker, StaffChat))

	assert.True(t, Can(model.RoleAdmin, EditAnyBeat))
	assert.True(t, Can(model.RoleAdmin, ManageRecordings))
	assert.True(t, Can(model.RoleAdmin, StaffChat))
}

func TestUnknownRoleHasNoCapabilities(t *testing.T) {
	assert.False(t, Can("", EditOwnBeat))
	assert.False(t, Can("superuser", UploadBeat))
}
