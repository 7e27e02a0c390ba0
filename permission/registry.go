package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identware/userguard/internal"
)

// Section partitions the API surface: "api" for end-users, "admin" for
// back-office callers.
type Section string

const (
	// SectionAPI is the end-user surface.
	SectionAPI Section = "api"
	// SectionAdmin is the back-office surface.
	SectionAdmin Section = "admin"
)

// RoleActive is the status value of a usable role.
const RoleActive uint8 = 1

// Role is a named grant scoped to a section.
type Role struct {
	Name    string  `json:"name"`
	Section Section `json:"section"`
	Status  uint8   `json:"status"`
}

// Permission maps a route key ("<section>-<module>-<package>-<handler>") to
// the role names that grant it.
type Permission struct {
	Key     string   `json:"key"`
	Section Section  `json:"section"`
	Roles   []string `json:"roles"`
}

// Source supplies the live role and permission tables, typically a database
// provider.
type Source interface {
	Roles(ctx context.Context, section Section) ([]Role, error)
	Permissions(ctx context.Context, section Section) ([]Permission, error)
}

// ErrUnavailable wraps cache or source failures.
var ErrUnavailable = errors.New("role registry unavailable")

// BuildKey assembles a route permission key from its parts.
func BuildKey(section Section, module, pkg, handler string) string {
	return string(section) + "-" + module + "-" + pkg + "-" + handler
}

// Registry is the Redis-cached view of the role and permission tables.
// Safe for concurrent use.
type Registry struct {
	redis  redis.UniversalClient
	source Source
	ttl    time.Duration
}

// NewRegistry creates a registry caching source reads for ttl.
func NewRegistry(redisClient redis.UniversalClient, source Source, ttl time.Duration) *Registry {
	return &Registry{redis: redisClient, source: source, ttl: ttl}
}

// SectionRoles returns the active role names for a section, cache-first.
func (r *Registry) SectionRoles(ctx context.Context, section Section) ([]string, error) {
	table, err := r.sectionTable(ctx, section)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(table.Roles))
	for _, role := range table.Roles {
		if role.Status == RoleActive {
			names = append(names, role.Name)
		}
	}
	return names, nil
}

// LightRoles returns active role names across both sections, cache key
// roles-light. Used by admin listings that only need names.
func (r *Registry) LightRoles(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.cached(ctx, internal.RolesKey("light"), &names, func() (any, error) {
		api, err := r.SectionRoles(ctx, SectionAPI)
		if err != nil {
			return nil, err
		}
		admin, err := r.SectionRoles(ctx, SectionAdmin)
		if err != nil {
			return nil, err
		}
		return append(api, admin...), nil
	}); err != nil {
		return nil, err
	}
	return names, nil
}

// AllRoles returns every role row of both sections, cache key roles-list.
func (r *Registry) AllRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := r.cached(ctx, internal.RolesKey(""), &roles, func() (any, error) {
		api, err := r.source.Roles(ctx, SectionAPI)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		admin, err := r.source.Roles(ctx, SectionAdmin)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return append(api, admin...), nil
	}); err != nil {
		return nil, err
	}
	return roles, nil
}

// Filter intersects the caller's claimed roles with the live role list for
// the section. Unknown roles are dropped silently: a role deleted after
// token issuance simply stops granting anything.
func (r *Registry) Filter(ctx context.Context, claimed []string, section Section) ([]string, error) {
	live, err := r.SectionRoles(ctx, section)
	if err != nil {
		return nil, err
	}

	liveSet := make(map[string]struct{}, len(live))
	for _, name := range live {
		liveSet[name] = struct{}{}
	}

	kept := make([]string, 0, len(claimed))
	for _, name := range claimed {
		if _, ok := liveSet[name]; ok {
			kept = append(kept, name)
		}
	}
	return kept, nil
}

// IsGranted reports whether any of the roles grants the permission key.
// A key with no permission row denies everyone. The permission table rides
// the same section cache as the roles, so Invalidate covers both.
func (r *Registry) IsGranted(ctx context.Context, roles []string, key string, section Section) (bool, error) {
	table, err := r.sectionTable(ctx, section)
	if err != nil {
		return false, err
	}

	var granting []string
	for _, p := range table.Permissions {
		if p.Key == key {
			granting = p.Roles
			break
		}
	}
	if len(granting) == 0 {
		return false, nil
	}

	grantSet := make(map[string]struct{}, len(granting))
	for _, name := range granting {
		grantSet[name] = struct{}{}
	}
	for _, name := range roles {
		if _, ok := grantSet[name]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops every cached role projection. Called by the engine after
// any role mutation so deletions bind on the next authorization check.
func (r *Registry) Invalidate(ctx context.Context) error {
	keys := []string{
		internal.RolesKey(""),
		internal.RolesKey("api"),
		internal.RolesKey("admin"),
		internal.RolesKey("light"),
	}
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// sectionTable is the cached projection of one section: its role rows and
// its permission rows together under the section's roles key.
type sectionTable struct {
	Roles       []Role       `json:"roles"`
	Permissions []Permission `json:"permissions"`
}

func (r *Registry) sectionTable(ctx context.Context, section Section) (*sectionTable, error) {
	scope := "api"
	if section == SectionAdmin {
		scope = "admin"
	}

	var table sectionTable
	if err := r.cached(ctx, internal.RolesKey(scope), &table, func() (any, error) {
		roles, err := r.source.Roles(ctx, section)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		perms, err := r.source.Permissions(ctx, section)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return sectionTable{Roles: roles, Permissions: perms}, nil
	}); err != nil {
		return nil, err
	}
	return &table, nil
}

// cached reads key into out, falling back to fill and writing the result
// back with the registry TTL. Cache transport failures degrade to a direct
// source read rather than failing the request.
func (r *Registry) cached(ctx context.Context, key string, out any, fill func() (any, error)) error {
	data, err := r.redis.Get(ctx, key).Bytes()
	if err == nil {
		if json.Unmarshal(data, out) == nil {
			return nil
		}
		// Corrupt cache entry: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fresh, err := fill()
	if err != nil {
		return err
	}

	blob, err := json.Marshal(fresh)
	if err != nil {
		return err
	}
	if err := r.redis.Set(ctx, key, blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return json.Unmarshal(blob, out)
}
