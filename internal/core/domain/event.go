package domain

// ChangeKind is the kind of an output-tree notification.
type ChangeKind string

const (
	// ChangeModified reports that a file's content changed.
	ChangeModified ChangeKind = "change"
	// ChangeUnlink reports that a file was deleted.
	ChangeUnlink ChangeKind = "unlink"
	// ChangeAdd reports that a file was created.
	ChangeAdd ChangeKind = "add"
	// ChangeAddDir reports that a directory was created.
	ChangeAddDir ChangeKind = "addDir"
	// ChangeUnlinkDir reports that a directory was deleted.
	ChangeUnlinkDir ChangeKind = "unlinkDir"
)

// Known reports whether k is one of the defined change kinds.
func (k ChangeKind) Known() bool {
	switch k {
	case ChangeModified, ChangeUnlink, ChangeAdd, ChangeAddDir, ChangeUnlinkDir:
		return true
	default:
		return false
	}
}

// Actionable reports whether the invalidation listener reacts to this kind.
func (k ChangeKind) Actionable() bool {
	return k == ChangeModified || k == ChangeUnlink
}

// ChangeEvent is a single (kind, path) notification about the output tree.
type ChangeEvent struct {
	Kind ChangeKind `json:"event"`
	Path string     `json:"path"`
}
