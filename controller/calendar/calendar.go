package calendar

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmate/calendar"
	"taskmate/controller"
)

func CalendarController(router *gin.Engine, env *controller.Env) {
	router.GET("/calendar", env.Auth, func(c *gin.Context) {
		GetOverview(c, env)
	})
	router.GET("/calendar.ics", env.Auth, func(c *gin.Context) {
		ExportCalendar(c, env)
	})
}

// GetOverview returns day groups, markers and today's highlight.
func GetOverview(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	items, err := env.Service.List(c.Request.Context(), sess)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, calendar.Build(items, env.Clock(), env.Location))
}

func ExportCalendar(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	items, err := env.Service.List(c.Request.Context(), sess)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="assignments.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar.ExportICS(items, env.Clock())))
}
