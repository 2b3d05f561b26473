package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/domain/task"
	"go.uber.org/zap"
)

type asanaWorkspace struct {
	GID string `json:"gid"`
}

type asanaMe struct {
	Data struct {
		GID        string           `json:"gid"`
		Workspaces []asanaWorkspace `json:"workspaces"`
	} `json:"data"`
}

type asanaTask struct {
	GID       string `json:"gid"`
	Name      string `json:"name"`
	Notes     string `json:"notes"`
	Completed bool   `json:"completed"`
	DueOn     string `json:"due_on"`
}

type asanaTaskList struct {
	Data []asanaTask `json:"data"`
}

// AsanaSyncer imports tasks assigned to the token owner
type AsanaSyncer struct {
	baseURL string
	client  *http.Client
	deps    Deps
}

var _ integration.Syncer = (*AsanaSyncer)(nil)

// NewAsanaSyncer creates an AsanaSyncer
func NewAsanaSyncer(baseURL string, client *http.Client, deps Deps) *AsanaSyncer {
	return &AsanaSyncer{baseURL: baseURL, client: client, deps: deps}
}

// Platform returns the platform code this syncer handles
func (s *AsanaSyncer) Platform() integration.PlatformCode {
	return integration.PlatformAsana
}

// Sync imports the first page of the owner's tasks
func (s *AsanaSyncer) Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error) {
	var creds asanaCredentials
	if err := loadCredentials(s.deps.Vault, integ, &creds); err != nil {
		return nil, err
	}
	auth := bearer(creds.AccessToken)

	workspace := creds.WorkspaceGID
	if workspace == "" {
		var me asanaMe
		if err := getJSON(ctx, s.client, s.baseURL, "/users/me", nil, auth, &me); err != nil {
			return nil, err
		}
		if len(me.Data.Workspaces) == 0 {
			return nil, fmt.Errorf("%w: asana user has no workspaces", integration.ErrPlatformInvalidResponse)
		}
		workspace = me.Data.Workspaces[0].GID
	}

	query := url.Values{
		"assignee":   {"me"},
		"workspace":  {workspace},
		"limit":      {strconv.Itoa(pageLimit)},
		"opt_fields": {"name,notes,completed,due_on"},
	}
	var list asanaTaskList
	if err := getJSON(ctx, s.client, s.baseURL, "/tasks", query, auth, &list); err != nil {
		return nil, err
	}

	existing, err := s.deps.Tasks.ListTasks(ctx, integ.UserID)
	if err != nil {
		return nil, err
	}
	descriptions := taskDescriptions(existing)

	result := &integration.SyncResult{}
	for _, remote := range list.Data {
		marker := s.Platform().Marker(remote.GID)
		if remote.GID == "" || integration.AlreadyImported(descriptions, marker) {
			result.Skipped++
			continue
		}

		t, err := task.NewTask(integ.UserID, remote.Name, withMarker(strings.TrimSpace(remote.Notes), marker), string(integration.PlatformAsana))
		if err != nil {
			s.deps.logger().Warn("Skipping Asana task", zap.String("task_gid", remote.GID), zap.Error(err))
			result.Skipped++
			continue
		}
		if remote.Completed {
			t.Complete()
		}
		if due, err := time.Parse("2006-01-02", remote.DueOn); err == nil {
			t.DueDate = &due
		}
		if err := s.deps.Tasks.CreateTask(ctx, t); err != nil {
			return nil, err
		}
		descriptions = append(descriptions, t.Description)
		result.Imported++
	}

	return markSynced(ctx, s.deps, integ, result)
}
