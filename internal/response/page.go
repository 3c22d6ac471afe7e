package response

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/handout-viewer/internal/view"
)

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.ContentType(), "application/json")
}

// MessagePage builds the message page for an error code.
func MessagePage(code ErrCode, kind view.MessageKind) view.MessagePage {
	return view.MessagePage{
		Chrome:  view.Chrome{Title: GetTitle(code)},
		Kind:    kind,
		Heading: GetTitle(code),
		Message: GetMessage(code),
	}
}

// Page renders a message page. Only the error's own message is shown.
func Page(c *gin.Context, statusCode int, code ErrCode, kind view.MessageKind) {
	page := MessagePage(code, kind)
	if kind == view.KindError {
		page.Code = RequestID(c)
	}
	c.HTML(statusCode, view.PageMessage, page)
}

// AbortPage aborts the chain with a message page, or the JSON envelope for
// JSON clients.
func AbortPage(c *gin.Context, statusCode int, code ErrCode, kind view.MessageKind) {
	if WantsJSON(c) {
		AbortFail(c, statusCode, code)
		return
	}
	Page(c, statusCode, code, kind)
	c.Abort()
}
