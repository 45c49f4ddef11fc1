package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tracker-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, hub *Hub, logger *log.Logger) {
	e.Use(GzipRequestMiddleware())

	e.GET("/api/tasks", getTasks(store, logger))
	e.POST("/api/tasks", createTask(store, hub, logger))
	e.PATCH("/api/tasks/:id", updateTask(store, hub, logger))
	e.DELETE("/api/tasks/:id", deleteTask(store, hub, logger))
	e.GET("/api/tasks/stream", streamTasks(store, hub))
	e.GET("/healthz", healthz(store))
}

func healthz(_ Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// renderError shapes any store error into {error: message} using the
// error's status hint, defaulting to 500.
func renderError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}

func getTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		status, parseErr := domain.ParseStatus(c.QueryParam("status"))
		if parseErr != nil {
			metrics.SetErrorStage("invalid_status")
			err = renderError(c, parseErr)
			return err
		}
		filter := domain.Filter{Status: status, Query: c.QueryParam("q")}
		metrics.SetFilterApplied(filter.Status != domain.StatusAll || filter.Query != "")

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = renderError(c, fetchErr)
			return err
		}
		tasks = filter.Apply(tasks)
		if tasks == nil {
			tasks = []domain.Task{}
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createTask(store Storage, hub *Hub, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req createTaskRequest
		if err := decodeBody(c.Request().Body, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		task, err := store.CreateTask(ctx, req.Title, req.Description)
		if err != nil {
			return renderError(c, err)
		}
		logger.WithFields(log.Fields{"task": task.ID, "route": "/api/tasks"}).Debug("task created")
		broadcastTasks(ctx, store, hub, logger)
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store Storage, hub *Hub, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		var patch domain.TaskPatch
		if err := decodeBody(c.Request().Body, &patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		task, err := store.UpdateTask(ctx, id, patch)
		if err != nil {
			return renderError(c, err)
		}
		logger.WithFields(log.Fields{"task": task.ID, "route": "/api/tasks/:id"}).Debug("task updated")
		broadcastTasks(ctx, store, hub, logger)
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage, hub *Hub, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		task, err := store.DeleteTask(ctx, id)
		if err != nil {
			return renderError(c, err)
		}
		logger.WithFields(log.Fields{"task": task.ID, "route": "/api/tasks/:id"}).Debug("task deleted")
		broadcastTasks(ctx, store, hub, logger)
		return c.JSON(http.StatusOK, task)
	}
}

// decodeBody strictly decodes a JSON body: unknown fields and bodies over
// requestBodyMaxSize are rejected.
func decodeBody(body io.Reader, dst any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(body, requestBodyMaxSize))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// broadcastTasks pushes the fresh full listing to stream subscribers after
// a successful mutation. Failures only affect the stream, never the
// mutation response.
func broadcastTasks(ctx context.Context, store Storage, hub *Hub, logger *log.Logger) {
	if hub == nil {
		return
	}
	tasks, err := store.ListTasks(ctx)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("stream: list for broadcast failed")
		return
	}
	data, err := sonic.ConfigStd.Marshal(tasks)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("stream: marshal for broadcast failed")
		return
	}
	hub.Broadcast(data)
}
