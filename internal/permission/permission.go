// Package permission decides what an authenticated user may do.  Access is
// granted by group membership; superusers pass every check.
package permission

// Group names.  Member is the legacy English name of Membre and is still
// honoured for accounts created before the rename.
const (
	GroupAdmin        = "Admin"
	GroupSuperAdmin   = "SuperAdmin"
	GroupMembre       = "Membre"
	GroupLegacyMember = "Member"
)

// ManagerGroups may manage ships, role templates, slots and operations.
var ManagerGroups = []string{GroupAdmin, GroupSuperAdmin}

// MemberGroups may view the operation overview and allocation pages.
var MemberGroups = []string{GroupAdmin, GroupSuperAdmin, GroupMembre, GroupLegacyMember}

// KnownGroups lists the groups a manager may assign.
var KnownGroups = []string{GroupAdmin, GroupSuperAdmin, GroupMembre}

// Principal is the caller as seen by permission checks.  The zero value is
// an anonymous caller.
type Principal struct {
	UserID        uint64
	Authenticated bool
	Superuser     bool
	Groups        []string
}

// InGroups reports whether p is a superuser or belongs to one of groups.
func InGroups(p Principal, groups []string) bool {
	if !p.Authenticated {
		return false
	}
	if p.Superuser {
		return true
	}
	for _, have := range p.Groups {
		for _, want := range groups {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CanManageOps reports whether p can manage ships and allocations.
func CanManageOps(p Principal) bool {
	return InGroups(p, ManagerGroups)
}

// CanAccessMemberHome reports whether p can view the operation overview.
func CanAccessMemberHome(p Principal) bool {
	return CanManageOps(p) || InGroups(p, MemberGroups)
}

// CanModifyUser reports whether actor may change target's account.  Only a
// superuser may touch another superuser.
func CanModifyUser(actor Principal, targetIsSuperuser bool) bool {
	if !CanManageOps(actor) {
		return false
	}
	return !targetIsSuperuser || actor.Superuser
}

// ValidGroup reports whether g is one of KnownGroups.
func ValidGroup(g string) bool {
	for _, k := range KnownGroups {
		if k == g {
			return true
		}
	}
	return false
}
