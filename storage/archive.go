package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-teams/models"
)

const archivePrefix = "brackets"

type bracketSnapshot struct {
	ArchivedAt time.Time      `json:"archived_at"`
	TeamCount  int            `json:"team_count"`
	Teams      []*models.Team `json:"teams"`
}

// BracketArchiver выгружает JSON-снимок сетки в объектное хранилище.
type BracketArchiver struct {
	uploader FileUploader
	now      func() time.Time
}

func NewBracketArchiver(uploader FileUploader) *BracketArchiver {
	return &BracketArchiver{uploader: uploader, now: time.Now}
}

func (a *BracketArchiver) Archive(ctx context.Context, teams []*models.Team) (string, error) {
	archivedAt := a.now().UTC()
	body, err := json.Marshal(bracketSnapshot{
		ArchivedAt: archivedAt,
		TeamCount:  len(teams),
		Teams:      teams,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal bracket snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/%s.json", archivePrefix, archivedAt.Format("20060102T150405.000Z"))
	result, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return result.Key, nil
}
