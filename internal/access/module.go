package access

import "fmt"

// Module identifies a functional area of the application subject to
// independent access control. The set is closed; persistence and the
// authorization gate only ever see the values listed here.
type Module string

const (
	ModuleDashboard        Module = "dashboard"
	ModulePatients         Module = "patients"
	ModuleAppointments     Module = "appointments"
	ModuleConsultations    Module = "consultations"
	ModulePharmacy         Module = "pharmacy"
	ModuleLaboratory       Module = "laboratory"
	ModuleInsurance        Module = "insurance"
	ModuleBilling          Module = "billing"
	ModuleReports          Module = "reports"
	ModuleUserManagement   Module = "userManagement"
	ModuleAccessManagement Module = "accessManagement"
	ModuleSettings         Module = "settings"
)

// Modules returns the closed module set in canonical order.
func Modules() []Module {
	return []Module{
		ModuleDashboard,
		ModulePatients,
		ModuleAppointments,
		ModuleConsultations,
		ModulePharmacy,
		ModuleLaboratory,
		ModuleInsurance,
		ModuleBilling,
		ModuleReports,
		ModuleUserManagement,
		ModuleAccessManagement,
		ModuleSettings,
	}
}

// ParseModule validates a raw module tag coming from storage or a request.
func ParseModule(raw string) (Module, error) {
	for _, m := range Modules() {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("access: unknown module %q", raw)
}

// Capability is one of the four per-module permission bits.
type Capability string

const (
	CapabilityView   Capability = "view"
	CapabilityCreate Capability = "create"
	CapabilityEdit   Capability = "edit"
	CapabilityDelete Capability = "delete"
)

// ParseCapability validates a raw capability tag.
func ParseCapability(raw string) (Capability, error) {
	switch Capability(raw) {
	case CapabilityView, CapabilityCreate, CapabilityEdit, CapabilityDelete:
		return Capability(raw), nil
	}
	return "", fmt.Errorf("access: unknown capability %q", raw)
}

// PermissionSet holds the capability bits of one role for one module.
type PermissionSet struct {
	Module    Module
	CanView   bool
	CanCreate bool
	CanEdit   bool
	CanDelete bool
}

// RequiresView reports whether any action capability is set. A set with
// actions but no view violates the permission invariant.
func (p PermissionSet) RequiresView() bool {
	return p.CanCreate || p.CanEdit || p.CanDelete
}

// Allows returns the bit corresponding to the requested capability.
func (p PermissionSet) Allows(c Capability) bool {
	switch c {
	case CapabilityView:
		return p.CanView
	case CapabilityCreate:
		return p.CanCreate
	case CapabilityEdit:
		return p.CanEdit
	case CapabilityDelete:
		return p.CanDelete
	}
	return false
}

// DefaultTemplate returns the permission template for a new role: every
// module disabled except dashboard view. Pure; callers own the slice.
func DefaultTemplate() []PermissionSet {
	sets := make([]PermissionSet, 0, len(Modules()))
	for _, m := range Modules() {
		sets = append(sets, PermissionSet{Module: m, CanView: m == ModuleDashboard})
	}
	return sets
}
