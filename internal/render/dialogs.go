package render

import (
	"fmt"
	"strings"

	"github.com/lotas/lesezeichen/internal/types"
)

// EditDialog renders the bookmark edit dialog. The option whose ID equals
// parentID is preselected.
func EditDialog(title, url, parentID string, folders []types.FolderChoice) string {
	var opts strings.Builder
	for _, f := range folders {
		selected := ""
		if f.ID == parentID {
			selected = " selected"
		}
		fmt.Fprintf(&opts, `<option value="%s"%s>%s%s</option>`,
			esc(f.ID), selected, strings.Repeat("&nbsp;&nbsp;", f.Depth), esc(f.Title))
	}
	return `<div id="edit-dialog" class="edit-dialog-overlay"><div class="edit-dialog">` +
		`<div class="edit-dialog-header"><h3>Edit bookmark</h3><button class="edit-dialog-close" type="button">×</button></div>` +
		`<div class="edit-dialog-content">` +
		fmt.Sprintf(`<div class="edit-form-group"><label for="edit-title">Name:</label><input type="text" id="edit-title" value="%s"></div>`, esc(title)) +
		fmt.Sprintf(`<div class="edit-form-group"><label for="edit-url">URL:</label><input type="url" id="edit-url" value="%s"><button type="button" class="edit-dialog-fetch-title" title="Use the page title">↻</button></div>`, esc(url)) +
		`<div class="edit-form-group"><label for="edit-folder">Folder:</label><select id="edit-folder">` + opts.String() + `</select></div>` +
		`<div class="edit-dialog-error" style="display: none;"></div>` +
		`</div>` +
		`<div class="edit-dialog-actions"><button type="button" class="edit-dialog-cancel">Cancel</button><button type="button" class="edit-dialog-save">Save</button></div>` +
		`</div></div>`
}

// DeleteDialog renders the delete confirmation for one bookmark.
func DeleteDialog(title, url string) string {
	return fmt.Sprintf(`<div id="delete-dialog" class="edit-dialog-overlay" data-bookmark-url="%s"><div class="edit-dialog">`, esc(url)) +
		`<div class="edit-dialog-header"><h3>Delete bookmark</h3><button class="delete-dialog-close" type="button">×</button></div>` +
		fmt.Sprintf(`<div class="edit-dialog-content"><p class="delete-dialog-message">Delete the bookmark “%s”?</p></div>`, esc(title)) +
		`<div class="edit-dialog-actions"><button type="button" class="delete-dialog-cancel">Cancel</button><button type="button" class="delete-dialog-confirm">Delete</button></div>` +
		`</div></div>`
}

// ErrorDialog renders a dismissable error message.
func ErrorDialog(message string) string {
	return `<div id="error-dialog" class="error-dialog-overlay"><div class="error-dialog">` +
		fmt.Sprintf(`<p class="error-dialog-message">❌ %s</p>`, esc(message)) +
		`<button type="button" class="error-dialog-close">OK</button>` +
		`</div></div>`
}
