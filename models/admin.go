package models

type AdminRole string

const (
	RoleAdmin      AdminRole = "admin"
	RoleSuperadmin AdminRole = "superadmin"
)

type AdminUser struct {
	ID           int    `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	IsSuperadmin bool   `json:"is_superadmin" db:"is_superadmin"`
}

func (a *AdminUser) Role() AdminRole {
	if a.IsSuperadmin {
		return RoleSuperadmin
	}
	return RoleAdmin
}
