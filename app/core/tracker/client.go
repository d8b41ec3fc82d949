package tracker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const defaultAPIRoot = "https://app.asana.com/api/1.0"

// Field sets requested from the tracking service per operation.
const (
	StatusFields   = "name,completed,due_on,assignee.name"
	EnrichFields   = "name,notes,completed"
	UpcomingFields = "name,due_on,assignee.name,completed"
)

type Config struct {
	Token          string
	ProjectID      string
	APIRoot        string
	RequestTimeout time.Duration
}

// Client is a thin REST client for the task-tracking service. The service
// owns all task state; this client only reads and patches it.
type Client struct {
	cfg  Config
	http *http.Client
}

// Task is a transient task record derived from a service response.
type Task struct {
	ID           string
	Name         string
	Completed    bool
	Notes        string
	DueOn        string
	AssigneeName string
}

type User struct {
	ID   string
	Name string
}

// TaskPatch carries only the fields to update; nil fields are omitted
// from the request body.
type TaskPatch struct {
	Notes      *string
	AssigneeID *string
	DueOn      *string
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.APIRoot) == "" {
		cfg.APIRoot = defaultAPIRoot
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (c *Client) ProjectID() string {
	return c.cfg.ProjectID
}

// ListTasks fetches all tasks for the configured project.
func (c *Client) ListTasks(ctx context.Context, optFields string) ([]Task, error) {
	query := url.Values{}
	query.Set("opt_fields", optFields)
	body, err := c.get(ctx, fmt.Sprintf("/projects/%s/tasks", c.cfg.ProjectID), query)
	if err != nil {
		return nil, err
	}
	return parseTasks(body), nil
}

// TasksDueBefore fetches project tasks with a due date before the given
// YYYY-MM-DD date.
func (c *Client) TasksDueBefore(ctx context.Context, date string, optFields string) ([]Task, error) {
	query := url.Values{}
	query.Set("opt_fields", optFields)
	query.Set("due_on.before", date)
	body, err := c.get(ctx, fmt.Sprintf("/projects/%s/tasks", c.cfg.ProjectID), query)
	if err != nil {
		return nil, err
	}
	return parseTasks(body), nil
}

// UpdateTask patches a single task. Only fields set on the patch are sent.
func (c *Client) UpdateTask(ctx context.Context, taskID string, patch TaskPatch) error {
	payload := `{"data":{}}`
	var err error
	if patch.Notes != nil {
		if payload, err = sjson.Set(payload, "data.notes", *patch.Notes); err != nil {
			return err
		}
	}
	if patch.AssigneeID != nil {
		if payload, err = sjson.Set(payload, "data.assignee", *patch.AssigneeID); err != nil {
			return err
		}
	}
	if patch.DueOn != nil {
		if payload, err = sjson.Set(payload, "data.due_on", *patch.DueOn); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint(fmt.Sprintf("/tasks/%s", taskID), nil), bytes.NewReader([]byte(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req)
	return err
}

// ListUsers fetches the service's user records for assignee resolution.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	query := url.Values{}
	query.Set("opt_fields", "name")
	body, err := c.get(ctx, "/users", query)
	if err != nil {
		return nil, err
	}
	var users []User
	gjson.GetBytes(body, "data").ForEach(func(_, item gjson.Result) bool {
		users = append(users, User{
			ID:   item.Get("gid").String(),
			Name: item.Get("name").String(),
		})
		return true
	})
	return users, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.Token))
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tracker api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := strings.TrimRight(c.cfg.APIRoot, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func parseTasks(body []byte) []Task {
	var tasks []Task
	gjson.GetBytes(body, "data").ForEach(func(_, item gjson.Result) bool {
		tasks = append(tasks, Task{
			ID:           item.Get("gid").String(),
			Name:         item.Get("name").String(),
			Completed:    item.Get("completed").Bool(),
			Notes:        item.Get("notes").String(),
			DueOn:        item.Get("due_on").String(),
			AssigneeName: item.Get("assignee.name").String(),
		})
		return true
	})
	return tasks
}
