package assignment

import (
	"io"

	"github.com/gin-gonic/gin"

	"taskmate/controller"
	"taskmate/livesync"
	"taskmate/model"
)

type event struct {
	name string
	data interface{}
	last bool
}

// relay hands controller events to the streaming loop. Sends give up once
// quit is closed so a stopped stream never blocks the controller.
type relay struct {
	events chan event
	quit   chan struct{}
}

func newRelay() *relay {
	return &relay{events: make(chan event, 16), quit: make(chan struct{})}
}

func (r *relay) send(ev event) {
	select {
	case r.events <- ev:
	case <-r.quit:
	}
}

// pump writes events until the client leaves or a final event is sent.
func (r *relay) pump(c *gin.Context) {
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-r.events:
			c.SSEvent(ev.name, ev.data)
			return !ev.last
		}
	})
}

// StreamAssignments sends a "list" event for every change to the caller's
// assignments.
func StreamAssignments(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	r := newRelay()
	ctrl := livesync.NewController(env.Assignments, sess, livesync.Handlers{
		OnList: func(u livesync.ListUpdate) {
			r.send(event{name: "list", data: u})
		},
		OnListError: func(err error) {
			r.send(event{name: "error", data: gin.H{"error": err.Error()}, last: true})
		},
	}, livesync.WithLogger(env.Log))

	defer ctrl.Stop()
	defer close(r.quit)
	if err := ctrl.Start(c.Request.Context()); err != nil {
		controller.RespondError(c, err)
		return
	}

	env.Log.Debug().Str("userID", sess.UID).Msg("List stream opened")
	r.pump(c)
}

// StreamAssignment follows one assignment: "assignment" on every snapshot,
// "remoteEdit" when someone else changed it and a final "closed" once it is
// gone.
func StreamAssignment(c *gin.Context, env *controller.Env) {
	sess, ok := controller.RequireSession(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, err := env.Service.Get(c.Request.Context(), sess, id); err != nil {
		controller.RespondError(c, err)
		return
	}

	r := newRelay()
	ctrl := livesync.NewController(env.Assignments, sess, livesync.Handlers{
		OnDetail: func(a model.Assignment) {
			r.send(event{name: "assignment", data: toResponse(a, env)})
		},
		OnRemoteEdit: func(n livesync.RemoteEdit) {
			r.send(event{name: "remoteEdit", data: n})
		},
		OnDetailClosed: func(id string, err error) {
			r.send(event{name: "closed", data: gin.H{"id": id, "error": err.Error()}, last: true})
		},
		OnListError: func(err error) {
			r.send(event{name: "error", data: gin.H{"error": err.Error()}, last: true})
		},
	}, livesync.WithLogger(env.Log), livesync.WithNoticeDuration(env.NoticeDuration))

	defer ctrl.Stop()
	defer close(r.quit)
	ctx := c.Request.Context()
	if err := ctrl.Start(ctx); err != nil {
		controller.RespondError(c, err)
		return
	}
	if err := ctrl.OpenDetail(ctx, id); err != nil {
		controller.RespondError(c, err)
		return
	}

	env.Log.Debug().Str("userID", sess.UID).Str("assignmentID", id).Msg("Detail stream opened")
	r.pump(c)
}
