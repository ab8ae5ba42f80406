package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinxingedu/kindersync/internal/common"
	"github.com/jinxingedu/kindersync/internal/models"
	"github.com/jinxingedu/kindersync/internal/storage"
	"github.com/jinxingedu/kindersync/internal/syncer"
)

var testStudents = []models.Record{
	{"id": "s1", "name": "小明", "class": "小一班"},
	{"id": "s2", "name": "小红", "className": "中一班"},
	{"id": "s3", "name": "小刚", "class": "大一班"},
}

func TestFilterStudentsAdminSeesAll(t *testing.T) {
	for _, role := range []string{RoleSuperAdmin, RoleAdmin, "园长", "副园长"} {
		res := FilterStudents(testStudents, models.UserInfo{Role: role})
		assert.Len(t, res.Records, 3, role)
		assert.True(t, res.CanEdit, role)
		assert.Empty(t, res.Hint, role)
	}
}

func TestFilterStudentsKitchenReadsAllEditsNothing(t *testing.T) {
	res := FilterStudents(testStudents, models.UserInfo{Role: RoleKitchen})
	assert.Len(t, res.Records, 3)
	assert.False(t, res.CanEdit)
}

func TestFilterStudentsTeacherScoped(t *testing.T) {
	user := models.UserInfo{Role: RoleTeacher, AssignedClasses: []string{"小一班", "中一班"}}
	res := FilterStudents(testStudents, user)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "s1", res.Records[0].ID())
	assert.Equal(t, "s2", res.Records[1].ID(), "the legacy className alias is honored")
	assert.True(t, res.CanEdit)
}

func TestFilterStudentsFailsClosed(t *testing.T) {
	user := models.UserInfo{Name: "张老师", Role: RoleTeacher}
	res := FilterStudents(testStudents, user)
	assert.Empty(t, res.Records, "no assignment means no visibility, not full visibility")
	assert.False(t, res.CanEdit)
	assert.Contains(t, res.Hint, "张老师")
}

func TestRoleMatchingIgnoresCase(t *testing.T) {
	res := FilterStudents(testStudents, models.UserInfo{Role: "admin"})
	assert.Len(t, res.Records, 3, "a lowercase admin role still grants full access")
	assert.True(t, res.CanEdit)

	res = FilterStudents(testStudents, models.UserInfo{Role: "Kitchen"})
	assert.Len(t, res.Records, 3)
	assert.False(t, res.CanEdit, "mixed-case kitchen still reads all and edits nothing")

	assert.True(t, IsAdmin("super_admin"))
	assert.False(t, IsAdmin("teacher"))
}

func TestClassPermissions(t *testing.T) {
	teacher := models.UserInfo{Role: RoleTeacher, AssignedClasses: []string{"小一班"}}
	assert.True(t, CanAccessClass(teacher, "小一班"))
	assert.False(t, CanAccessClass(teacher, "大一班"))
	assert.True(t, CanEditClass(teacher, "小一班"))
	assert.False(t, CanEditClass(teacher, "大一班"))

	kitchen := models.UserInfo{Role: RoleKitchen}
	assert.True(t, CanAccessClass(kitchen, "大一班"))
	assert.False(t, CanEditClass(kitchen, "大一班"))

	admin := models.UserInfo{Role: RoleAdmin}
	assert.True(t, CanEditClass(admin, "学前班"))
}

func TestAccessibleClasses(t *testing.T) {
	assert.Equal(t, AllClasses, AccessibleClasses(models.UserInfo{Role: "园长"}))
	assert.Equal(t, []string{"中二班"},
		AccessibleClasses(models.UserInfo{Role: RoleTeacher, AssignedClasses: []string{"中二班"}}))
	assert.Empty(t, AccessibleClasses(models.UserInfo{Role: RoleTeacher}))
}

func seedRoster(t *testing.T, store storage.Store) {
	t.Helper()
	roster := []models.Record{
		{"id": "t1", "name": "张老师", "phone": "13800000001", "role": RoleTeacher, "assignedClasses": []string{"小一班"}},
		{"id": "t2", "name": "李园长", "phone": "13800000002", "role": "园长"},
	}
	require.NoError(t, storage.SetJSON(context.Background(), store, syncer.KeyStaff, roster))
}

func TestAssignClasses(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedRoster(t, store)

	admin := models.UserInfo{ID: "t2", Phone: "13800000002", Role: "园长"}
	teacher := models.UserInfo{ID: "t1", Phone: "13800000001", Role: RoleTeacher}

	err := AssignClasses(ctx, store, teacher, "t1", []string{"大一班"})
	assert.ErrorIs(t, err, common.ErrorNoPermission)

	err = AssignClasses(ctx, store, admin, "t1", []string{"不存在班"})
	assert.Error(t, err)

	err = AssignClasses(ctx, store, admin, "missing", []string{"大一班"})
	assert.ErrorIs(t, err, common.ErrorUserNotFound)

	require.NoError(t, AssignClasses(ctx, store, admin, "t1", []string{"大一班", "大二班"}))

	var roster []models.Record
	ok, err := storage.GetJSON(ctx, store, syncer.KeyStaff, &roster)
	require.NoError(t, err)
	require.True(t, ok)

	var member models.StaffMember
	require.NoError(t, models.As(roster[0], &member))
	assert.Equal(t, []string{"大一班", "大二班"}, member.Classes())
}
