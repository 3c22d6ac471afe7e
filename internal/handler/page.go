package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/view"
)

// chrome fills the layout fields that depend on the request.
func chrome(c *gin.Context, viewer *model.Session, title, program, examCode string) view.Chrome {
	ch := view.Chrome{
		Title:     title,
		Program:   program,
		ExamCode:  examCode,
		CSRFField: csrf.TemplateField(c.Request),
	}
	if viewer != nil {
		ch.LoggedIn = true
		ch.Viewer = viewer.Identity().FullName()
		if ch.Viewer == "" {
			ch.Viewer = viewer.Email
		}
	}
	return ch
}
