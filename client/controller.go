// Package client implements the synchronizing task client: it mirrors the
// server's task collection, applies mutations optimistically for
// responsiveness, and reconciles or rolls back once the server answers.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"tracker-api/domain"
)

const defaultTimeout = 10 * time.Second

// Controller holds a local copy of the server's task list. The copy is a
// cache, never authoritative: every mutation is confirmed or rolled back
// against the server response, and filter changes replace it wholesale.
//
// A Controller drives a single cooperative UI flow and is not safe for
// general concurrent use. The one exception is the busy flag: it is
// atomic so a double-submitted create (a second UI event firing while the
// first request is still in flight) is rejected instead of racing.
type Controller struct {
	httpClient *http.Client
	baseURL    string
	notifier   Notifier

	tasks   []domain.Task
	status  domain.Status
	query   string
	gen     uint64
	busy    atomic.Bool
	history []Action
}

// New creates a Controller for the API at baseURL. A nil httpClient gets a
// default with a timeout, a nil notifier discards notifications.
func New(baseURL string, httpClient *http.Client, notifier Notifier) *Controller {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Controller{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		notifier:   notifier,
		status:     domain.StatusAll,
	}
}

// Tasks returns a copy of the local task list.
func (c *Controller) Tasks() []domain.Task {
	out := make([]domain.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Status returns the active status filter.
func (c *Controller) Status() domain.Status { return c.status }

// Query returns the active search text.
func (c *Controller) Query() string { return c.query }

// Busy reports whether a create is still in flight.
func (c *Controller) Busy() bool { return c.busy.Load() }

// History returns every action state transition recorded so far, oldest
// first. Each optimistic mutation contributes a pending entry followed by
// a confirmed or rolledback one.
func (c *Controller) History() []Action {
	out := make([]Action, len(c.history))
	copy(out, c.history)
	return out
}

// LastAction returns the most recent action transition.
func (c *Controller) LastAction() (Action, bool) {
	if len(c.history) == 0 {
		return Action{}, false
	}
	return c.history[len(c.history)-1], true
}

// Link returns the shareable URL for the current filter state, with
// default values omitted the way the browser UI keeps its address bar.
func (c *Controller) Link() string {
	params := url.Values{}
	if c.status != domain.StatusAll {
		params.Set("status", string(c.status))
	}
	if c.query != "" {
		params.Set("q", c.query)
	}
	if len(params) == 0 {
		return c.baseURL + "/"
	}
	return c.baseURL + "/?" + params.Encode()
}

// SetFilter replaces the navigational state and re-fetches the full list
// with the new parameters. Filtering is a pure read, so there is no
// optimism here.
func (c *Controller) SetFilter(ctx context.Context, status domain.Status, query string) error {
	if _, err := domain.ParseStatus(string(status)); err != nil {
		return err
	}
	c.status = status
	c.query = query
	return c.Refresh(ctx)
}

// Refresh replaces the local list with the server's authoritative answer
// for the current filter. A response that arrives after a newer refresh
// was started is discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.gen++
	gen := c.gen

	resp, err := c.do(ctx, http.MethodGet, c.listPath(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New(errorMessage(resp, "Failed to load tasks."))
	}
	var tasks []domain.Task
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return fmt.Errorf("decode task list: %w", err)
	}
	if c.gen != gen {
		// A newer refresh or reconciliation superseded this response.
		return nil
	}
	c.tasks = tasks
	return nil
}

// Create validates the title locally, shows a placeholder task
// immediately, and reconciles it with the server's answer. On failure the
// placeholder is discarded and the full list re-fetched, because a failed
// create may have left local and server state divergent in more ways than
// the one entry.
func (c *Controller) Create(ctx context.Context, title, description string) (domain.Task, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return domain.Task{}, errors.New("a create is already in flight")
	}
	defer c.busy.Store(false)
	trimmed, err := domain.ValidateTitle(title)
	if err != nil {
		c.notifier.Errorf("%s", err.Error())
		return domain.Task{}, err
	}

	placeholder := domain.Task{
		ID:          "tmp-" + uuid.NewString(),
		Title:       trimmed,
		Description: strings.TrimSpace(description),
		Done:        false,
		CreatedAt:   time.Now().UnixMilli(),
	}
	c.tasks = append([]domain.Task{placeholder}, c.tasks...)
	c.record(Action{Kind: ActionCreate, TaskID: placeholder.ID, State: ActionPending})

	resp, err := c.do(ctx, http.MethodPost, "/api/tasks",
		map[string]string{"title": title, "description": description})
	if err != nil {
		return domain.Task{}, c.rollbackCreate(ctx, placeholder.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		cause := errors.New(errorMessage(resp, "Failed to create task."))
		return domain.Task{}, c.rollbackCreate(ctx, placeholder.ID, cause)
	}
	var created domain.Task
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&created); err != nil {
		return domain.Task{}, c.rollbackCreate(ctx, placeholder.ID, err)
	}

	c.replace(placeholder.ID, created)
	c.record(Action{Kind: ActionCreate, TaskID: created.ID, State: ActionConfirmed})
	c.notifier.Successf("Task added.")
	return created, nil
}

// ToggleDone flips the task's done flag locally, then patches the server.
// On failure the pre-toggle snapshot is restored directly, without a
// re-fetch.
func (c *Controller) ToggleDone(ctx context.Context, id string) error {
	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("no local task %s", id)
	}
	snapshot := c.Tasks()
	gen := c.gen
	next := !c.tasks[idx].Done
	c.tasks[idx].Done = next
	c.record(Action{Kind: ActionToggle, TaskID: id, State: ActionPending})

	resp, err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id),
		domain.TaskPatch{Done: &next})
	if err != nil {
		return c.rollback(ActionToggle, id, snapshot, gen, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		cause := errors.New(errorMessage(resp, "Failed to update task."))
		return c.rollback(ActionToggle, id, snapshot, gen, cause)
	}
	var updated domain.Task
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return c.rollback(ActionToggle, id, snapshot, gen, err)
	}

	c.replace(id, updated)
	c.record(Action{Kind: ActionToggle, TaskID: id, State: ActionConfirmed})
	c.notifier.Successf("Task updated.")
	return nil
}

// Delete removes the task locally, then asks the server. On failure the
// pre-delete snapshot is restored directly.
func (c *Controller) Delete(ctx context.Context, id string) error {
	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("no local task %s", id)
	}
	snapshot := c.Tasks()
	gen := c.gen
	c.tasks = append(c.tasks[:idx:idx], c.tasks[idx+1:]...)
	c.record(Action{Kind: ActionDelete, TaskID: id, State: ActionPending})

	resp, err := c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil)
	if err != nil {
		return c.rollback(ActionDelete, id, snapshot, gen, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		cause := errors.New(errorMessage(resp, "Failed to delete task."))
		return c.rollback(ActionDelete, id, snapshot, gen, cause)
	}

	c.record(Action{Kind: ActionDelete, TaskID: id, State: ActionConfirmed})
	c.notifier.Successf("Task deleted.")
	return nil
}

// rollbackCreate discards the optimistic placeholder and re-fetches the
// authoritative list (full reconciliation).
func (c *Controller) rollbackCreate(ctx context.Context, tmpID string, cause error) error {
	if idx := c.index(tmpID); idx >= 0 {
		c.tasks = append(c.tasks[:idx:idx], c.tasks[idx+1:]...)
	}
	if err := c.Refresh(ctx); err != nil {
		c.notifier.Errorf("%s", err.Error())
	}
	c.record(Action{Kind: ActionCreate, TaskID: tmpID, State: ActionRolledBack, Err: cause})
	c.notifier.Errorf("%s", cause.Error())
	return cause
}

// rollback restores a pre-action snapshot, unless a refresh replaced the
// list while the request was in flight.
func (c *Controller) rollback(kind ActionKind, id string, snapshot []domain.Task, gen uint64, cause error) error {
	if c.gen == gen {
		c.tasks = snapshot
	}
	c.record(Action{Kind: kind, TaskID: id, State: ActionRolledBack, Err: cause})
	c.notifier.Errorf("%s", cause.Error())
	return cause
}

func (c *Controller) record(a Action) {
	c.history = append(c.history, a)
}

func (c *Controller) index(id string) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) replace(id string, task domain.Task) {
	if idx := c.index(id); idx >= 0 {
		c.tasks[idx] = task
	}
}

func (c *Controller) listPath() string {
	params := url.Values{}
	params.Set("status", string(c.status))
	if c.query != "" {
		params.Set("q", c.query)
	}
	return "/api/tasks?" + params.Encode()
}

func (c *Controller) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// errorMessage extracts the server's {error} payload, falling back to the
// provided message when the body is not in the expected shape.
func errorMessage(resp *http.Response, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fallback
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		return fallback
	}
	return payload.Error
}
