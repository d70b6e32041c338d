// Package textutil sanitizes manifest-supplied names for safe filesystem use.
//
// Manifest name columns are free text entered by archivists and routinely
// contain path separators, colons, and shell-hostile punctuation. The tree
// builder passes every node name through SanitizeFileName before computing
// output paths so a stray "/" in a title cannot change the shape of the
// container.
package textutil
