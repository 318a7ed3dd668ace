package api

import (
	"context"
	"fmt"
	"net/url"
)

// TaskInfo is the metadata for one task: the shared start/target pair
// and the set of games racing it.
type TaskInfo struct {
	ID         string   `json:"id"`
	StartPage  string   `json:"start_page"`
	TargetPage string   `json:"target_page"`
	GameIDs    []string `json:"game_ids"`
}

// GetTask fetches metadata for one task.
func (c *Client) GetTask(ctx context.Context, taskID string) (TaskInfo, error) {
	var info TaskInfo
	path := "/v1/tasks/" + url.PathEscape(taskID)

	if err := c.get(ctx, path, nil, &info); err != nil {
		return TaskInfo{}, fmt.Errorf("get task %s: %w", taskID, err)
	}

	if len(info.GameIDs) == 0 {
		return TaskInfo{}, fmt.Errorf("get task %s: no games", taskID)
	}

	return info, nil
}
