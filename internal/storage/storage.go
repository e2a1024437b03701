package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkerData records how far a conversation's history has been fetched
type MarkerData struct {
	LastMessageTS string `json:"last_message_ts"`
	UpdatedAt     int64  `json:"updated_at"`
}

// GetAppDataDir returns the application data directory
func GetAppDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	appDataDir := filepath.Join(homeDir, ".slack-bridge")
	if err := os.MkdirAll(appDataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create app data directory: %w", err)
	}

	return appDataDir, nil
}

// markerFilePath returns the path to the marker file for a conversation
// in a workspace
func markerFilePath(workspace, conversationID string) (string, error) {
	appDataDir, err := GetAppDataDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(appDataDir, fmt.Sprintf("%s_%s_marker.json", workspace, conversationID)), nil
}

// SaveMarker saves the latest fetched message timestamp for a conversation
func SaveMarker(workspace, conversationID, messageTS string) error {
	filePath, err := markerFilePath(workspace, conversationID)
	if err != nil {
		return err
	}

	data := MarkerData{
		LastMessageTS: messageTS,
		UpdatedAt:     time.Now().Unix(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal marker data: %w", err)
	}

	if err := os.WriteFile(filePath, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write marker file: %w", err)
	}

	return nil
}

// LoadMarker returns the stored timestamp for a conversation, or an empty
// string when no marker exists yet
func LoadMarker(workspace, conversationID string) (string, error) {
	filePath, err := markerFilePath(workspace, conversationID)
	if err != nil {
		return "", err
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read marker file: %w", err)
	}

	var data MarkerData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal marker data: %w", err)
	}

	return data.LastMessageTS, nil
}
