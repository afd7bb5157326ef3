package newtab

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/lotas/lesezeichen/internal/host"
)

// MsgBookmarklet is shown instead of opening a javascript: bookmark.
const MsgBookmarklet = "Bookmarklets only run from the Firefox toolbar."

// UserMessage turns an operation failure into text for the error dialog.
// op is a verb such as "delete" or "move".
func UserMessage(err error, op string) string {
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, host.ErrNotFound):
		return fmt.Sprintf("The bookmark to %s could not be found.", op)
	case errors.Is(err, host.ErrPermission), errors.Is(err, host.ErrReadOnly):
		return fmt.Sprintf("You do not have permission to %s this bookmark.", op)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr), errors.As(err, &urlErr):
		return fmt.Sprintf("Could not %s the bookmark because of a network error.", op)
	default:
		return fmt.Sprintf("Failed to %s the bookmark.", op)
	}
}
