// Package rbac resolves user permissions through the role to
// permission join, with a single special rule: the ADMIN role passes
// every check without explicit grants.
package rbac

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/models"
)

// AdminRole is the reserved role name subject to the bypass rule.
const AdminRole = "ADMIN"

// Permission keys for the content surface. Synced into the database at
// startup; new keys added here are picked up by the admin sync on the
// next boot.
const (
	PermAboutManage      = "about:manage"
	PermProjectManage    = "projects:manage"
	PermExperienceManage = "experiences:manage"
	PermUserManage       = "users:manage"
	PermRoleManage       = "roles:manage"
)

// Catalog is the static permission catalog of this service.
var Catalog = []string{
	PermAboutManage,
	PermProjectManage,
	PermExperienceManage,
	PermUserManage,
	PermRoleManage,
}

type Resolver struct {
	DB *gorm.DB
}

// HasPermission reports whether the user may perform the keyed action.
// Holders of the ADMIN role short-circuit to true.
func (r *Resolver) HasPermission(ctx context.Context, userID uint, key string) (bool, error) {
	isAdmin, err := r.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}

	var count int64
	err = r.DB.WithContext(ctx).
		Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ? AND permissions.key = ?", userID, key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsAdmin reports whether the user holds the ADMIN role.
func (r *Resolver) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, AdminRole).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SyncPermissions upserts the permission catalog, then re-runs the
// admin reconciliation so ADMIN owns any key added since last boot.
func (r *Resolver) SyncPermissions(ctx context.Context, keys []string) error {
	db := r.DB.WithContext(ctx)
	for _, key := range keys {
		var perm models.Permission
		err := db.Where("key = ?", key).First(&perm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&models.Permission{Key: key}).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return r.EnsureAdminPermissions(ctx)
}

// EnsureAdminPermissions creates the ADMIN role if missing and grants
// it every permission row it does not own yet. Insert-only and
// idempotent; stale grants are never removed.
func (r *Resolver) EnsureAdminPermissions(ctx context.Context) error {
	db := r.DB.WithContext(ctx)

	var admin models.Role
	err := db.Where("name = ?", AdminRole).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		admin = models.Role{Name: AdminRole, Description: "full access"}
		if err := db.Create(&admin).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	var missing []models.Permission
	err = db.
		Where("id NOT IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Table("role_permissions").
			Select("permission_id").
			Where("role_id = ?", admin.ID)).
		Find(&missing).Error
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	return db.Model(&admin).Association("Permissions").Append(missing)
}

// AssignRole attaches a role to a user by role name.
func (r *Resolver) AssignRole(ctx context.Context, userID uint, roleName string) error {
	db := r.DB.WithContext(ctx)

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return err
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return err
	}
	return db.Model(&user).Association("Roles").Append(&role)
}

// RemoveRole detaches a role from a user by role name.
func (r *Resolver) RemoveRole(ctx context.Context, userID uint, roleName string) error {
	db := r.DB.WithContext(ctx)

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return err
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return err
	}
	return db.Model(&user).Association("Roles").Delete(&role)
}

// GrantPermission attaches a permission key to a role.
func (r *Resolver) GrantPermission(ctx context.Context, roleName, key string) error {
	db := r.DB.WithContext(ctx)

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return err
	}
	var perm models.Permission
	if err := db.Where("key = ?", key).First(&perm).Error; err != nil {
		return err
	}
	return db.Model(&role).Association("Permissions").Append(&perm)
}

// RevokePermission detaches a permission key from a role. ADMIN keeps
// passing checks through the bypass regardless.
func (r *Resolver) RevokePermission(ctx context.Context, roleName, key string) error {
	db := r.DB.WithContext(ctx)

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return err
	}
	var perm models.Permission
	if err := db.Where("key = ?", key).First(&perm).Error; err != nil {
		return err
	}
	return db.Model(&role).Association("Permissions").Delete(&perm)
}
