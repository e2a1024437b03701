package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/kelsos/slack-bridge/internal/models"
	"github.com/kelsos/slack-bridge/internal/sched"
)

// FetchAuthTest verifies the workspace credentials and identifies the
// authenticated user.
func (c *Client) FetchAuthTest(co *sched.Coroutine) (*models.AuthTestResponse, error) {
	response, err := c.Fetch(co, "auth.test", url.Values{})
	if err != nil {
		return nil, err
	}

	auth, err := decodeInto[models.AuthTestResponse](response)
	if err != nil {
		return nil, err
	}
	if !auth.OK {
		return nil, fmt.Errorf("auth.test failed: %s", auth.Error)
	}
	return auth, nil
}

// FetchConversationsInfo fetches metadata for a single conversation.
func (c *Client) FetchConversationsInfo(co *sched.Coroutine, conversationID string) (*models.ConversationInfoResponse, error) {
	params := url.Values{}
	params.Set("channel", conversationID)

	response, err := c.Fetch(co, "conversations.info", params)
	if err != nil {
		return nil, err
	}

	info, err := decodeInto[models.ConversationInfoResponse](response)
	if err != nil {
		return nil, err
	}
	if !info.OK {
		return nil, fmt.Errorf("conversations.info failed for %s: %s", conversationID, info.Error)
	}
	return info, nil
}

// FetchConversationsHistory fetches a conversation's message history.
// A non-empty oldest timestamp limits the fetch to newer messages.
func (c *Client) FetchConversationsHistory(co *sched.Coroutine, conversationID, oldest string) (*models.HistoryResponse, error) {
	params := url.Values{}
	params.Set("channel", conversationID)
	if oldest != "" {
		params.Set("oldest", oldest)
	}

	response, err := c.Fetch(co, "conversations.history", params)
	if err != nil {
		return nil, err
	}

	history, err := decodeInto[models.HistoryResponse](response)
	if err != nil {
		return nil, err
	}
	if !history.OK {
		return nil, fmt.Errorf("conversations.history failed for %s: %s", conversationID, history.Error)
	}
	return history, nil
}

// FetchUsersConversations lists the conversations the authenticated user
// is a member of, following pagination cursors across pages.
func (c *Client) FetchUsersConversations(co *sched.Coroutine, types string, excludeArchived bool, limit, pages int) (*models.ConversationsResponse, error) {
	params := url.Values{}
	params.Set("types", types)
	params.Set("exclude_archived", strconv.FormatBool(excludeArchived))
	params.Set("limit", strconv.Itoa(limit))

	response, err := c.FetchList(co, "users.conversations", "channels", params, pages)
	if err != nil {
		return nil, err
	}

	conversations, err := decodeInto[models.ConversationsResponse](response)
	if err != nil {
		return nil, err
	}
	if !conversations.OK {
		return nil, fmt.Errorf("users.conversations failed: %s", conversations.Error)
	}
	return conversations, nil
}

// FetchUsersInfo fetches profile information for a single user.
func (c *Client) FetchUsersInfo(co *sched.Coroutine, userID string) (*models.UserInfoResponse, error) {
	params := url.Values{}
	params.Set("user", userID)

	response, err := c.Fetch(co, "users.info", params)
	if err != nil {
		return nil, err
	}

	info, err := decodeInto[models.UserInfoResponse](response)
	if err != nil {
		return nil, err
	}
	if !info.OK {
		return nil, fmt.Errorf("users.info failed for %s: %s", userID, info.Error)
	}
	return info, nil
}
