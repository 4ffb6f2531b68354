package model

// Roles.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// Known fine-grained permissions grantable to cashiers. Admins implicitly
// hold all of them.
const (
	PermAnalyticsCashierStats = "analytics_view_cashier_stats"
	PermSalesDiscount         = "sales_discount_apply"
	PermProductsManage        = "products_manage"
	PermCategoriesManage      = "categories_manage"
	PermDebtorsManage         = "debtors_manage"
)

// KnownPermissions enumerates every grantable permission key.
var KnownPermissions = []string{
	PermAnalyticsCashierStats,
	PermSalesDiscount,
	PermProductsManage,
	PermCategoriesManage,
	PermDebtorsManage,
}

// KnownPermission reports whether perm is one of the grantable keys.
func KnownPermission(perm string) bool {
	for _, p := range KnownPermissions {
		if p == perm {
			return true
		}
	}
	return false
}

// User is an operator account. Passwords are stored only as bcrypt hashes.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"passwordHash,omitempty"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions,omitempty"`
}

// HasPermission reports whether the user may perform the named action.
// Admins hold every permission; cashiers only their explicit allow-list.
func (u *User) HasPermission(perm string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Sanitized returns a copy safe to hand to other terminals — the password
// hash never leaves the auth path.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
