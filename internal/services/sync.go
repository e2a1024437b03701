package services

import (
	"github.com/kelsos/slack-bridge/internal/api"
	"github.com/kelsos/slack-bridge/internal/config"
	"github.com/kelsos/slack-bridge/internal/logger"
	"github.com/kelsos/slack-bridge/internal/models"
	"github.com/kelsos/slack-bridge/internal/sched"
	"github.com/kelsos/slack-bridge/internal/storage"
)

// SyncSummary reports the outcome of a workspace sync.
type SyncSummary struct {
	Conversations int
	Messages      int
	Failed        int
}

// SyncService orchestrates the workspace synchronization process
type SyncService struct {
	config    *config.Config
	api       *api.Client
	scheduler *sched.Scheduler
}

// NewSyncService creates a new sync service with all dependencies
func NewSyncService(cfg *config.Config, apiClient *api.Client, scheduler *sched.Scheduler) *SyncService {
	return &SyncService{
		config:    cfg,
		api:       apiClient,
		scheduler: scheduler,
	}
}

// SyncWorkspace verifies credentials, lists the user's conversations and
// fetches history for each of them. Per-conversation fetches run as
// separate tasks, so their requests interleave over the host's event loop.
func (s *SyncService) SyncWorkspace(co *sched.Coroutine, types string, pages int) (*SyncSummary, error) {
	auth, err := s.api.FetchAuthTest(co)
	if err != nil {
		return nil, err
	}
	logger.Info("Authenticated as %s in team %s", auth.User, auth.Team)

	conversations, err := s.api.FetchUsersConversations(co, types, true, 200, pages)
	if err != nil {
		return nil, err
	}
	logger.Info("Found %d conversations", len(conversations.Channels))

	tasks := make([]*sched.Task, 0, len(conversations.Channels))
	for _, conversation := range conversations.Channels {
		tasks = append(tasks, s.scheduler.CreateTask(func(co *sched.Coroutine) (any, error) {
			return s.syncConversation(co, conversation)
		}, false))
	}

	summary := &SyncSummary{}
	for i, task := range tasks {
		value, err := co.AwaitTask(task)
		if err != nil {
			logger.Error("Failed to sync conversation %s: %v", conversations.Channels[i].ID, err)
			summary.Failed++
			continue
		}
		summary.Conversations++
		summary.Messages += value.(int)
	}

	return summary, nil
}

// syncConversation fetches one conversation's history, resuming from the
// stored marker, and returns the number of new messages.
func (s *SyncService) syncConversation(co *sched.Coroutine, conversation models.Conversation) (any, error) {
	oldest, err := storage.LoadMarker(s.config.Workspace, conversation.ID)
	if err != nil {
		logger.Warn("Failed to load marker for %s: %v", conversation.ID, err)
		oldest = ""
	}

	history, err := s.api.FetchConversationsHistory(co, conversation.ID, oldest)
	if err != nil {
		return 0, err
	}

	name := conversation.Name
	if name == "" {
		name = conversation.ID
	}
	logger.Info("Fetched %d messages from %s", len(history.Messages), name)

	if len(history.Messages) > 0 {
		// History is returned newest first.
		latest := history.Messages[0].TS
		if err := storage.SaveMarker(s.config.Workspace, conversation.ID, latest); err != nil {
			logger.Warn("Failed to save marker for %s: %v", conversation.ID, err)
		}
	}

	return len(history.Messages), nil
}

// ListConversations logs the conversations the user is a member of and
// returns them.
func (s *SyncService) ListConversations(co *sched.Coroutine, types string, limit, pages int) ([]models.Conversation, error) {
	conversations, err := s.api.FetchUsersConversations(co, types, true, limit, pages)
	if err != nil {
		return nil, err
	}

	for _, conversation := range conversations.Channels {
		if conversation.IsIM {
			logger.Info("%s (im with %s)", conversation.ID, conversation.User)
		} else {
			logger.Info("%s #%s", conversation.ID, conversation.Name)
		}
	}

	return conversations.Channels, nil
}

// FetchHistory fetches and logs one conversation's history.
func (s *SyncService) FetchHistory(co *sched.Coroutine, conversationID, oldest string) (*models.HistoryResponse, error) {
	info, err := s.api.FetchConversationsInfo(co, conversationID)
	if err != nil {
		return nil, err
	}

	history, err := s.api.FetchConversationsHistory(co, conversationID, oldest)
	if err != nil {
		return nil, err
	}

	name := info.Channel.Name
	if name == "" {
		name = info.Channel.ID
	}
	logger.Info("%d messages in %s", len(history.Messages), name)
	for i := len(history.Messages) - 1; i >= 0; i-- {
		message := history.Messages[i]
		logger.Info("[%s] %s: %s", message.TS, message.User, message.Text)
	}

	return history, nil
}
