package domain

// Action is an operation an actor asks to perform.
type Action string

// Authorizable actions.
const (
	ActionView           Action = "view"
	ActionEditConfig     Action = "edit-config"
	ActionApplyConfig    Action = "apply-config"
	ActionReloadService  Action = "reload-service"
	ActionGenerateCert   Action = "generate-cert"
	ActionRotateCert     Action = "rotate-cert"
	ActionSnapshot       Action = "snapshot"
	ActionRestore        Action = "restore"
	ActionReadAudit      Action = "read-audit"
	ActionManageOperator Action = "manage-operators"
)

// requiredPermission is the static action to permission table.
var requiredPermission = map[Action]Permission{
	ActionView:           PermissionRead,
	ActionEditConfig:     PermissionEdit,
	ActionApplyConfig:    PermissionApply,
	ActionReloadService:  PermissionApply,
	ActionGenerateCert:   PermissionRotateCert,
	ActionRotateCert:     PermissionRotateCert,
	ActionSnapshot:       PermissionRestore,
	ActionRestore:        PermissionRestore,
	ActionReadAudit:      PermissionRead,
	ActionManageOperator: PermissionAdmin,
}

// RequiredPermission returns the permission guarding the action. Unknown actions
// require admin.
func RequiredPermission(action Action) Permission {
	if permission, ok := requiredPermission[action]; ok {
		return permission
	}
	return PermissionAdmin
}
