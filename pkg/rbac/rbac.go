package rbac

// 团队内权限
const (
	PermissionAddMember  = "team:add_member"
	PermissionAssignTask = "team:assign_task"
	PermissionDeleteTeam = "team:delete"
)

// 团队角色
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var rolePermissions = map[string][]string{
	RoleOwner: {
		PermissionAddMember,
		PermissionAssignTask,
		PermissionDeleteTeam,
	},
	RoleAdmin: {
		PermissionAddMember,
		PermissionAssignTask,
	},
	RoleMember: {
		PermissionAssignTask,
	},
}

// ValidRole 判断角色是否合法
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
