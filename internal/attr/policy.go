package attr

import (
	"errors"
)

// Policy describes the ownership and permissions the mirror enforces.
// Owner/Group/Mode apply to every matching file, existing or new; the
// Default* forms apply only to entries the run creates. DirectoryMode is
// used when creating directories and when adjusting existing ones.
// Empty strings and zero modes mean "not configured".
type Policy struct {
	Owner         string
	Group         string
	Mode          Mode
	DefaultOwner  string
	DefaultGroup  string
	DefaultMode   Mode
	DirectoryMode Mode
}

// Attrs is a set of attributes to apply. Empty fields are left untouched.
type Attrs struct {
	Owner string
	Group string
	Mode  Mode
}

// IsZero reports whether there is nothing to apply.
func (a Attrs) IsZero() bool {
	return a.Owner == "" && a.Group == "" && !a.Mode.IsSet()
}

// Validate rejects policies that set both the absolute and the default form
// of the same attribute.
func (p Policy) Validate() error {
	var errs []error

	if p.Owner != "" && p.DefaultOwner != "" {
		errs = append(errs, errors.New("there is no reason to define both owner and defaultOwner"))
	}

	if p.Group != "" && p.DefaultGroup != "" {
		errs = append(errs, errors.New("there is no reason to define both group and defaultGroup"))
	}

	if p.Mode.IsSet() && p.DefaultMode.IsSet() {
		errs = append(errs, errors.New("there is no reason to define both mode and defaultMode"))
	}

	return errors.Join(errs...)
}

// NewFile returns the attributes for a freshly copied file.
func (p Policy) NewFile() Attrs {
	return Attrs{
		Owner: firstSet(p.Owner, p.DefaultOwner),
		Group: firstSet(p.Group, p.DefaultGroup),
		Mode:  firstMode(p.Mode, p.DefaultMode),
	}
}

// NewDirectory returns the attributes for a freshly created directory.
// The mode is fixed at creation time with DirectoryMode and is not part of
// the result.
func (p Policy) NewDirectory() Attrs {
	return Attrs{
		Owner: firstSet(p.Owner, p.DefaultOwner),
		Group: firstSet(p.Group, p.DefaultGroup),
	}
}

// FileAdjustment returns the attributes that must change on an existing
// file to satisfy the policy. Only the absolute forms are considered.
func (p Policy) FileAdjustment(owner, group string, mode Mode) Attrs {
	return p.adjustment(owner, group, mode, p.Mode)
}

// DirAdjustment is FileAdjustment for directories, with DirectoryMode in
// place of Mode.
func (p Policy) DirAdjustment(owner, group string, mode Mode) Attrs {
	return p.adjustment(owner, group, mode, p.DirectoryMode)
}

// FileDiverges reports whether an existing file needs chown or chmod.
func (p Policy) FileDiverges(owner, group string, mode Mode) bool {
	return !p.FileAdjustment(owner, group, mode).IsZero()
}

// DirDiverges reports whether an existing directory needs chown or chmod.
func (p Policy) DirDiverges(owner, group string, mode Mode) bool {
	return !p.DirAdjustment(owner, group, mode).IsZero()
}

func (p Policy) adjustment(owner, group string, mode, wantMode Mode) Attrs {
	var a Attrs

	if p.Owner != "" && p.Owner != owner {
		a.Owner = p.Owner
	}

	if p.Group != "" && p.Group != group {
		a.Group = p.Group
	}

	if wantMode.IsSet() && wantMode != mode {
		a.Mode = wantMode
	}

	return a
}

func firstSet(a, b string) string {
	if a != "" {
		return a
	}

	return b
}

func firstMode(a, b Mode) Mode {
	if a.IsSet() {
		return a
	}

	return b
}
