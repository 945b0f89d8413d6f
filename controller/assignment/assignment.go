package assignment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskmate/controller"
	"taskmate/dto"
	"taskmate/livesync"
	"taskmate/model"
	"taskmate/services"
	"taskmate/session"
)

// confirmTimeout bounds how long ?confirm=true waits for the snapshot.
const confirmTimeout = 15 * time.Second

func AssignmentController(router *gin.Engine, env *controller.Env) {
	routes := router.Group("/assignments", env.Auth)
	{
		routes.GET("", func(c *gin.Context) {
			ListAssignments(c, env)
		})
		routes.POST("", func(c *gin.Context) {
			CreateAssignment(c, env)
		})
		routes.GET("/stream", func(c *gin.Context) {
			StreamAssignments(c, env)
		})
		routes.GET("/:id", func(c *gin.Context) {
			GetAssignment(c, env)
		})
		routes.PUT("/:id/title", func(c *gin.Context) {
			UpdateTitle(c, env)
		})
		routes.PUT("/:id/content", func(c *gin.Context) {
			UpdateContent(c, env)
		})
		routes.PUT("/:id/reminder", func(c *gin.Context) {
			UpdateReminder(c, env)
		})
		routes.DELETE("/:id", func(c *gin.Context) {
			DeleteAssignment(c, env)
		})
		routes.POST("/:id/share", func(c *gin.Context) {
			ShareAssignment(c, env)
		})
		routes.GET("/:id/collaborators", func(c *gin.Context) {
			ListCollaborators(c, env)
		})
		routes.GET("/:id/stream", func(c *gin.Context) {
			StreamAssignment(c, env)
		})
	}
}

func ListAssignments(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	items, err := env.Service.List(c.Request.Context(), sess)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	out := make([]dto.AssignmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toResponse(a, env))
	}
	c.JSON(http.StatusOK, gin.H{"assignments": out})
}

func CreateAssignment(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var created model.Assignment
	rcpt, err := submit(c, env, sess, func(ctx context.Context) (services.Receipt, error) {
		a, r, err := env.Service.Create(ctx, sess, req.Title)
		created = a
		return r, err
	})
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Assignment created successfully",
		"assignment": toResponse(created, env),
		"receipt":    rcpt,
	})
}

func GetAssignment(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	a, err := env.Service.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(a, env))
}

func UpdateTitle(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	var req dto.UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	id := c.Param("id")
	respondReceipt(c, env, sess, "Title updated", func(ctx context.Context) (services.Receipt, error) {
		return env.Service.UpdateTitle(ctx, sess, id, req.Title)
	})
}

func UpdateContent(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	var req dto.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	align, err := model.ParseTextAlign(req.TextAlign)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	id := c.Param("id")
	respondReceipt(c, env, sess, "Content updated", func(ctx context.Context) (services.Receipt, error) {
		return env.Service.UpdateContent(ctx, sess, id, req.Content, align, req.TextFormat)
	})
}

func UpdateReminder(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	var req dto.UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	var at *time.Time
	switch {
	case req.At != nil:
		at = req.At
	case req.Form != nil:
		t := req.Form.Resolve(env.Clock(), env.Location)
		at = &t
	}
	id := c.Param("id")
	respondReceipt(c, env, sess, "Reminder updated", func(ctx context.Context) (services.Receipt, error) {
		return env.Service.UpdateReminder(ctx, sess, id, at)
	})
}

func DeleteAssignment(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	id := c.Param("id")
	respondReceipt(c, env, sess, "Assignment deleted", func(ctx context.Context) (services.Receipt, error) {
		return env.Service.Delete(ctx, sess, id)
	})
}

func ShareAssignment(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	var req dto.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	id := c.Param("id")
	respondReceipt(c, env, sess, "Assignment shared", func(ctx context.Context) (services.Receipt, error) {
		return env.Service.ShareWith(ctx, sess, id, req.Email)
	})
}

func ListCollaborators(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	profiles, err := env.Service.Collaborators(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	out := make([]dto.CollaboratorResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, dto.CollaboratorResponse{
			UID:         p.UID,
			DisplayName: p.DisplayName,
			Email:       p.Email,
			PhotoURL:    p.PhotoURL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"collaborators": out})
}

func respondReceipt(c *gin.Context, env *controller.Env, sess session.Session, message string, write livesync.Write) {
	rcpt, err := submit(c, env, sess, write)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReceiptResponse{Message: message, Receipt: rcpt})
}

// submit runs write directly, or with ?confirm=true through a live sync
// controller, returning only once a snapshot reflects it.
func submit(c *gin.Context, env *controller.Env, sess session.Session, write livesync.Write) (services.Receipt, error) {
	ctx := c.Request.Context()
	if c.Query("confirm") != "true" {
		return write(ctx)
	}

	ctrl := livesync.NewController(env.Assignments, sess, livesync.Handlers{}, livesync.WithLogger(env.Log))
	defer ctrl.Stop()
	if err := ctrl.Start(ctx); err != nil {
		return services.Receipt{}, err
	}
	p := ctrl.Submit(ctx, write)
	wctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()
	if err := p.Wait(wctx); err != nil {
		return p.Receipt(), err
	}
	return p.Receipt(), nil
}

func toResponse(a model.Assignment, env *controller.Env) dto.AssignmentResponse {
	return dto.AssignmentResponse{Assignment: a, ReminderLabel: a.Reminder.Label(env.Location)}
}
