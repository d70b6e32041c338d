package container

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"carton/internal/manifest"
	"carton/internal/textutil"
)

var (
	// ErrDuplicateID reports a manifest id declared more than once.
	ErrDuplicateID = errors.New("duplicate manifest id")
	// ErrCycle reports a parent chain that never reaches the container root.
	ErrCycle = errors.New("manifest parent cycle")
)

// Node is one position in the container tree. A node is owned exclusively by
// its parent; the root owns the whole tree. Children keep manifest order.
// Name is the final path segment after sanitization, normalization, and
// sibling disambiguation; OutputPath is the absolute destination computed
// during Build. Entry preserves the originating manifest row for reporting
// and sidecar metadata.
type Node struct {
	Kind       manifest.Kind
	Name       string
	Children   []*Node
	SourcePath string
	OutputPath string
	Entry      manifest.Entry
}

// Folder reports whether the node is a directory in the output tree.
func (n *Node) Folder() bool { return n.Kind == manifest.KindFolder }

// Walk visits the node and its descendants depth-first, parents before
// children, stopping at the first error.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of folder and file nodes below and including n,
// excluding the synthetic root.
func (n *Node) Count() (folders, files int) {
	_ = n.Walk(func(node *Node) error {
		if node == n {
			return nil
		}
		if node.Folder() {
			folders++
		} else {
			files++
		}
		return nil
	})
	return folders, files
}

// Build converts a validated entry sequence into a container tree rooted at
// rootOutputPath. The root node is synthetic: it carries no manifest entry
// and its OutputPath is rootOutputPath itself. Duplicate ids fail with
// ErrDuplicateID and unterminated parent chains fail with ErrCycle, both
// before any caller could reach the filesystem.
func Build(entries []manifest.Entry, rootOutputPath string) (*Node, error) {
	arena := make(map[string]*Node, len(entries))
	for _, entry := range entries {
		if _, exists := arena[entry.ID]; exists {
			return nil, fmt.Errorf("%w: id %q declared again at row %d", ErrDuplicateID, entry.ID, entry.Row)
		}
		arena[entry.ID] = &Node{
			Kind:       entry.Kind,
			SourcePath: entry.SourcePath,
			Entry:      entry,
		}
	}

	if err := checkParentChains(entries); err != nil {
		return nil, err
	}

	root := &Node{
		Kind:       manifest.KindFolder,
		OutputPath: rootOutputPath,
	}

	for _, entry := range entries {
		node := arena[entry.ID]

		parent := root
		if !entry.Root() {
			resolved, ok := arena[entry.ParentID]
			if !ok {
				return nil, fmt.Errorf("%w: row %d: parent_id %q does not match any entry", manifest.ErrReference, entry.Row, entry.ParentID)
			}
			if !resolved.Folder() {
				return nil, fmt.Errorf("%w: row %d: parent_id %q refers to a file entry", manifest.ErrReference, entry.Row, entry.ParentID)
			}
			parent = resolved
		}

		node.Name = disambiguate(parent.Children, segmentName(entry), entry.Kind)
		parent.Children = append(parent.Children, node)
	}

	// Names settle as siblings attach, so paths are finalized only after
	// every entry is linked.
	assignOutputPaths(root)
	return root, nil
}

// checkParentChains follows every entry's ancestor chain to the root,
// failing when a chain revisits an id instead of terminating.
func checkParentChains(entries []manifest.Entry) error {
	parents := make(map[string]string, len(entries))
	for _, entry := range entries {
		parents[entry.ID] = entry.ParentID
	}

	for _, entry := range entries {
		visited := map[string]struct{}{entry.ID: {}}
		current := entry.ParentID
		for current != "" {
			if _, seen := visited[current]; seen {
				return fmt.Errorf("%w: entry %q never reaches the root", ErrCycle, entry.ID)
			}
			visited[current] = struct{}{}
			next, ok := parents[current]
			if !ok {
				break
			}
			current = next
		}
	}
	return nil
}

// segmentName sanitizes and NFC-normalizes a manifest name so visually
// identical composed/decomposed spellings compare equal and the stored
// segment is stable across filesystems.
func segmentName(entry manifest.Entry) string {
	name := norm.NFC.String(textutil.SanitizeFileName(entry.Name))
	if name == "" {
		return "untitled"
	}
	return name
}

// disambiguate returns name unchanged when no sibling claims it, otherwise
// the first free "name-N" variant. File names keep their extension: the
// counter lands before it.
func disambiguate(siblings []*Node, name string, kind manifest.Kind) string {
	taken := make(map[string]struct{}, len(siblings))
	for _, sibling := range siblings {
		taken[sibling.Name] = struct{}{}
	}
	if _, clash := taken[name]; !clash {
		return name
	}

	stem, ext := name, ""
	if kind == manifest.KindFile {
		ext = filepath.Ext(name)
		stem = strings.TrimSuffix(name, ext)
		if stem == "" {
			// Dotfile-style names keep the counter at the end.
			stem, ext = name, ""
		}
	}
	for counter := 2; ; counter++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, counter, ext)
		if _, clash := taken[candidate]; !clash {
			return candidate
		}
	}
}

func assignOutputPaths(root *Node) {
	for _, child := range root.Children {
		child.OutputPath = filepath.Join(root.OutputPath, child.Name)
		assignOutputPaths(child)
	}
}
