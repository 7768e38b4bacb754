// Package rbac gates review operations on the session's mode. Viewer
// mode keeps navigation, filtering, search and export available while
// blocking every mutating operation.
package rbac

type Mode string
type Action string

const (
	ModeEditor Mode = "editor"
	ModeViewer Mode = "viewer"
)

const (
	ActionRead   Action = "read"
	ActionMutate Action = "mutate"
	ActionExport Action = "export"
)

func Can(mode Mode, action Action) bool {
	switch mode {
	case ModeEditor:
		return true
	case ModeViewer:
		return action == ActionRead || action == ActionExport
	default:
		return false
	}
}

func Normalize(mode string) Mode {
	switch Mode(mode) {
	case ModeEditor, ModeViewer:
		return Mode(mode)
	default:
		return ModeViewer
	}
}
