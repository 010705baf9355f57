package domain

// NodeType discriminates the TreeNode union.
type NodeType string

const (
	NodeFile   NodeType = "file"
	NodeFolder NodeType = "folder"
)

// TreeNode is one file or folder in the host's published structure.
// Path is unique within a tree and stable across re-broadcasts; it is the
// join key for open-file state. Children is nil for files.
type TreeNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Type     NodeType   `json:"type"`
	Children []TreeNode `json:"children,omitempty"`
}

// OpenFile is a full-content snapshot as of the last relay.
// The host is the source of truth; guest copies are last-write-wins caches.
type OpenFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}
