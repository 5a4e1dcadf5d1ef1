package domain

import "fmt"

type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Label is the text shown to the operator when picking a workspace.
func (w Workspace) Label() string {
	return fmt.Sprintf("%s (ID: %d)", w.Name, w.ID)
}

type WorkspaceList struct {
	Workspaces []Workspace `json:"workspaces"`
}
