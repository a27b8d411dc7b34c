package enums

import "fmt"

// AdminAction is the action_type recorded in admin_logs.
type AdminAction string

const (
	AdminActionAddBook          AdminAction = "ADD_BOOK"
	AdminActionEditBook         AdminAction = "EDIT_BOOK"
	AdminActionDeleteBook       AdminAction = "DELETE_BOOK"
	AdminActionAddUser          AdminAction = "ADD_USER"
	AdminActionEditUser         AdminAction = "EDIT_USER"
	AdminActionDeleteUser       AdminAction = "DELETE_USER"
	AdminActionMakeAdmin        AdminAction = "MAKE_ADMIN"
	AdminActionToggleUserStatus AdminAction = "TOGGLE_USER_STATUS"
	AdminActionAddCategory      AdminAction = "ADD_CATEGORY"
	AdminActionDeleteCategory   AdminAction = "DELETE_CATEGORY"
)

var validAdminActions = []AdminAction{
	AdminActionAddBook,
	AdminActionEditBook,
	AdminActionDeleteBook,
	AdminActionAddUser,
	AdminActionEditUser,
	AdminActionDeleteUser,
	AdminActionMakeAdmin,
	AdminActionToggleUserStatus,
	AdminActionAddCategory,
	AdminActionDeleteCategory,
}

func (a AdminAction) IsValid() bool {
	for _, candidate := range validAdminActions {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseAdminAction(value string) (AdminAction, error) {
	for _, candidate := range validAdminActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin action %q", value)
}
