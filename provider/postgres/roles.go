package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/identware/userguard/permission"
)

// RoleProvider is the sqlx implementation of userguard.RoleProvider.
type RoleProvider struct {
	db *sqlx.DB
}

func NewRoleProvider(db *sqlx.DB) *RoleProvider {
	return &RoleProvider{db: db}
}

type roleRow struct {
	Name    string `db:"name"`
	Section string `db:"section"`
	Status  uint8  `db:"status"`
}

type permissionRow struct {
	Key     string         `db:"key"`
	Section string         `db:"section"`
	Roles   pq.StringArray `db:"roles"`
}

// Roles lists every role in a section, active or not; the registry filters
// on status.
func (p *RoleProvider) Roles(ctx context.Context, section permission.Section) ([]permission.Role, error) {
	var rows []roleRow
	err := p.db.SelectContext(ctx, &rows,
		`SELECT name, section, status FROM roles WHERE section = $1 ORDER BY name`, section)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}

	out := make([]permission.Role, 0, len(rows))
	for _, r := range rows {
		out = append(out, permission.Role{
			Name:    r.Name,
			Section: permission.Section(r.Section),
			Status:  r.Status,
		})
	}
	return out, nil
}

// Permissions lists the permission table for a section. The roles column is
// a text[] of role names granting each key.
func (p *RoleProvider) Permissions(ctx context.Context, section permission.Section) ([]permission.Permission, error) {
	var rows []permissionRow
	err := p.db.SelectContext(ctx, &rows,
		`SELECT key, section, roles FROM permissions WHERE section = $1`, section)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}

	out := make([]permission.Permission, 0, len(rows))
	for _, r := range rows {
		out = append(out, permission.Permission{
			Key:     r.Key,
			Section: permission.Section(r.Section),
			Roles:   []string(r.Roles),
		})
	}
	return out, nil
}

func (p *RoleProvider) AccountRoles(ctx context.Context, userID int64, section permission.Section) ([]string, error) {
	var roles []string
	err := p.db.SelectContext(ctx, &roles, `
		SELECT r.name FROM account_roles ar
		JOIN roles r ON r.name = ar.role AND r.section = ar.section
		WHERE ar.account_id = $1 AND ar.section = $2
		ORDER BY r.name`,
		userID, section)
	if err != nil {
		return nil, fmt.Errorf("query account roles: %w", err)
	}
	return roles, nil
}

func (p *RoleProvider) AssignRole(ctx context.Context, userID int64, role string, section permission.Section) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO account_roles (account_id, role, section)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		userID, role, section)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (p *RoleProvider) RevokeRole(ctx context.Context, userID int64, role string, section permission.Section) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM account_roles WHERE account_id = $1 AND role = $2 AND section = $3`,
		userID, role, section)
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}
