package opex

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"carton/internal/container"
	"carton/internal/fileutil"
	"carton/internal/logging"
)

// Extension is appended to the described name to form the sidecar filename.
const Extension = ".opex"

const opexNamespace = "http://www.openpreservationexchange.org/opex/v1.0"

// identifierType tags the manifest row id carried in every sidecar.
const identifierType = "manifest-id"

// Writer renders sidecar files for moved content.
type Writer struct {
	security string
	logger   *slog.Logger
}

// NewWriter returns a sidecar writer. security is the platform security
// descriptor stamped into every sidecar; empty omits the element.
func NewWriter(security string, logger *slog.Logger) *Writer {
	return &Writer{
		security: security,
		logger:   logging.NewComponentLogger(logger, "opex"),
	}
}

// WriteFileSidecar writes <output>.opex next to a moved file, returning the
// sidecar path. The fixity digest is computed from the file at its
// destination, after the move, so the sidecar attests to the bytes the
// container actually holds.
func (w *Writer) WriteFileSidecar(node *container.Node) (string, error) {
	digest, err := fileutil.HashFile(node.OutputPath)
	if err != nil {
		return "", fmt.Errorf("fixity digest: %w", err)
	}

	doc := document{
		Namespace: opexNamespace,
		Transfer: &transfer{
			Fixities:         &fixities{Entries: []fixity{{Type: "SHA-256", Value: digest}}},
			OriginalFilename: filepath.Base(node.SourcePath),
		},
		Properties: w.properties(node),
	}

	path := node.OutputPath + Extension
	if err := writeDocument(path, doc); err != nil {
		return "", err
	}
	w.logger.Debug("wrote file sidecar", logging.String("path", path))
	return path, nil
}

// WriteFolderSidecar writes <name>.opex inside a folder, listing the
// subfolders and files present on disk at write time. Skipped entries never
// appear: the manifest element describes what the transfer actually holds.
func (w *Writer) WriteFolderSidecar(node *container.Node) (string, error) {
	doc := document{
		Namespace:  opexNamespace,
		Properties: w.properties(node),
	}

	if manifest := w.folderManifest(node); manifest != nil {
		doc.Transfer = &transfer{Manifest: manifest}
	}

	path := filepath.Join(node.OutputPath, node.Name+Extension)
	if err := writeDocument(path, doc); err != nil {
		return "", err
	}
	w.logger.Debug("wrote folder sidecar", logging.String("path", path))
	return path, nil
}

func (w *Writer) properties(node *container.Node) *properties {
	props := &properties{
		Title:              node.Entry.Title,
		Description:        node.Entry.Description,
		SecurityDescriptor: w.security,
	}
	if props.Title == "" {
		props.Title = node.Name
	}
	if node.Entry.ID != "" {
		props.Identifiers = &identifiers{
			Entries: []identifier{{Type: identifierType, Value: node.Entry.ID}},
		}
	}
	return props
}

func (w *Writer) folderManifest(node *container.Node) *manifestElement {
	var folderNames []string
	var fileEntries []fileEntry

	for _, child := range node.Children {
		if child.Folder() {
			if _, err := os.Stat(child.OutputPath); err == nil {
				folderNames = append(folderNames, child.Name)
			}
			continue
		}
		if _, err := os.Stat(child.OutputPath); err != nil {
			continue
		}
		fileEntries = append(fileEntries, fileEntry{Type: "content", Name: child.Name})
		if _, err := os.Stat(child.OutputPath + Extension); err == nil {
			fileEntries = append(fileEntries, fileEntry{Type: "metadata", Name: child.Name + Extension})
		}
	}

	if len(folderNames) == 0 && len(fileEntries) == 0 {
		return nil
	}
	manifest := &manifestElement{}
	if len(folderNames) > 0 {
		manifest.Folders = &folders{Names: folderNames}
	}
	if len(fileEntries) > 0 {
		manifest.Files = &files{Entries: fileEntries}
	}
	return manifest
}

func writeDocument(path string, doc document) error {
	payload, err := xml.MarshalIndent(doc, "", "\t")
	if err != nil {
		return fmt.Errorf("render sidecar: %w", err)
	}

	content := append([]byte(xml.Header), payload...)
	content = append(content, '\n')
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// document mirrors the OPEX metadata layout. Element names carry the opex:
// prefix literally; the namespace is declared once on the root.
type document struct {
	XMLName    xml.Name    `xml:"opex:OPEXMetadata"`
	Namespace  string      `xml:"xmlns:opex,attr"`
	Transfer   *transfer   `xml:"opex:Transfer,omitempty"`
	Properties *properties `xml:"opex:Properties,omitempty"`
}

type transfer struct {
	Manifest         *manifestElement `xml:"opex:Manifest,omitempty"`
	Fixities         *fixities        `xml:"opex:Fixities,omitempty"`
	OriginalFilename string           `xml:"opex:OriginalFilename,omitempty"`
}

type manifestElement struct {
	Folders *folders `xml:"opex:Folders,omitempty"`
	Files   *files   `xml:"opex:Files,omitempty"`
}

type folders struct {
	Names []string `xml:"opex:Folder"`
}

type files struct {
	Entries []fileEntry `xml:"opex:File"`
}

type fileEntry struct {
	Type string `xml:"type,attr"`
	Name string `xml:",chardata"`
}

type fixities struct {
	Entries []fixity `xml:"opex:Fixity"`
}

type fixity struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type properties struct {
	Title              string       `xml:"opex:Title,omitempty"`
	Description        string       `xml:"opex:Description,omitempty"`
	SecurityDescriptor string       `xml:"opex:SecurityDescriptor,omitempty"`
	Identifiers        *identifiers `xml:"opex:Identifiers,omitempty"`
}

type identifiers struct {
	Entries []identifier `xml:"opex:Identifier"`
}

type identifier struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}
