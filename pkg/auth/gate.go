package auth

import "fmt"

// DefaultLibraryOwner is the reserved owner of the shared workflow library.
const DefaultLibraryOwner = "tracecat"

// Gate applies the permission rules that go beyond plain ownership.
type Gate struct {
	libraryOwner string
}

// NewGate creates a gate whose shared library belongs to libraryOwner.
// An empty libraryOwner selects DefaultLibraryOwner.
func NewGate(libraryOwner string) *Gate {
	if libraryOwner == "" {
		libraryOwner = DefaultLibraryOwner
	}

	return &Gate{libraryOwner: libraryOwner}
}

// LibraryOwner returns the reserved library owner id.
func (g *Gate) LibraryOwner() string {
	return g.libraryOwner
}

// IsLibrary reports whether ownerID is the library owner.
func (g *Gate) IsLibrary(ownerID string) bool {
	return ownerID == g.libraryOwner
}

// CanClone checks that role may copy a workflow of sourceOwnerID into targetOwnerID.
// Clones always land with the caller. The source must be the caller's own or the library.
func (g *Gate) CanClone(role Role, sourceOwnerID, targetOwnerID string) error {
	err := role.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	if targetOwnerID != role.UserID {
		return fmt.Errorf("%w: clone target %q is not the caller", ErrForbidden, targetOwnerID)
	}

	if sourceOwnerID == role.UserID || g.IsLibrary(sourceOwnerID) {
		return nil
	}

	return fmt.Errorf("%w: %s %q may not clone workflows of %q", ErrForbidden, role.Kind, role.UserID, sourceOwnerID)
}

// CloneSource resolves the owner a copy request reads from. Only service roles may
// name an owner; everyone else copies from the library.
func (g *Gate) CloneSource(role Role, requestedOwnerID string) (string, error) {
	if requestedOwnerID == "" {
		return g.libraryOwner, nil
	}

	if !role.IsService() {
		return "", fmt.Errorf("%w: user roles may not choose the source owner", ErrForbidden)
	}

	return requestedOwnerID, nil
}
