package core

import "fmt"

// Action identifies a gated invoice operation. Every orchestrator method checks
// its action against the caller's role before touching QuickBooks.
type Action string

const (
	ActionInvoiceRead     Action = "invoice:read"
	ActionInvoiceCreate   Action = "invoice:create"
	ActionInvoiceUpdate   Action = "invoice:update"
	ActionInvoiceDelete   Action = "invoice:delete"
	ActionInvoiceSend     Action = "invoice:send"
	ActionInvoiceDownload Action = "invoice:download"
	ActionCustomerRead    Action = "customer:read"
)

// Team roles, in decreasing order of privilege.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// rolePermissions is the full role → action matrix. Owners and admins can do
// everything; members cannot delete; viewers are read-only.
var rolePermissions = map[string]map[Action]bool{
	RoleOwner: {
		ActionInvoiceRead: true, ActionInvoiceCreate: true, ActionInvoiceUpdate: true,
		ActionInvoiceDelete: true, ActionInvoiceSend: true, ActionInvoiceDownload: true,
		ActionCustomerRead: true,
	},
	RoleAdmin: {
		ActionInvoiceRead: true, ActionInvoiceCreate: true, ActionInvoiceUpdate: true,
		ActionInvoiceDelete: true, ActionInvoiceSend: true, ActionInvoiceDownload: true,
		ActionCustomerRead: true,
	},
	RoleMember: {
		ActionInvoiceRead: true, ActionInvoiceCreate: true, ActionInvoiceUpdate: true,
		ActionInvoiceSend: true, ActionInvoiceDownload: true,
		ActionCustomerRead: true,
	},
	RoleViewer: {
		ActionInvoiceRead: true, ActionInvoiceDownload: true,
		ActionCustomerRead: true,
	},
}

// Authorize reports whether role may perform action. Unknown roles have no
// permissions.
func Authorize(role string, action Action) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[action]
}

// RequirePermission returns ErrForbidden (wrapped with role and action) unless
// role may perform action.
func RequirePermission(role string, action Action) error {
	if !Authorize(role, action) {
		return fmt.Errorf("role %q cannot perform %s: %w", role, action, ErrForbidden)
	}
	return nil
}
