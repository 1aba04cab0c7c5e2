package repo

import "github.com/Bellian/Godot-Translation-Tool/internal/export"

// Document builds the bundle's export document.
func (b DialogBundle) Document() export.Document {
	return export.Dialog(b.Project.Name, b.Dialog, b.Group)
}

// ExportFiles turns bundles into archive members, keeping their order.
func ExportFiles(bundles []DialogBundle) []export.DialogFile {
	files := make([]export.DialogFile, 0, len(bundles))
	for _, b := range bundles {
		files = append(files, export.DialogFile{DialogID: b.Dialog.ID, Document: b.Document()})
	}
	return files
}
