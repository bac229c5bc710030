package acquire

import "strings"

// CollectDeclarations lists the declaration files of tree as downloads rooted
// at the virtual directory prefix.
func CollectDeclarations(tree *FileTree, prefix string) []Download {
	var out []Download
	for _, f := range tree.Files {
		if !strings.HasSuffix(f.Name, DeclarationSuffix) {
			continue
		}
		out = append(out, Download{
			Module:      tree.Module,
			Version:     tree.Version,
			Path:        f.Name,
			VirtualPath: prefix + f.Name,
		})
	}
	return out
}
