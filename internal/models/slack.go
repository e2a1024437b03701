package models

// ResponseMetadata carries the cursor for paginated endpoints. An empty
// cursor means there are no further pages.
type ResponseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

// Conversation is a channel, group or IM as returned by the
// conversations.* family of endpoints.
type Conversation struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	IsIM       bool   `json:"is_im,omitempty"`
	IsMember   bool   `json:"is_member,omitempty"`
	IsArchived bool   `json:"is_archived,omitempty"`
	User       string `json:"user,omitempty"`
}

// ConversationsResponse is the envelope of users.conversations.
type ConversationsResponse struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error,omitempty"`
	Channels         []Conversation   `json:"channels"`
	ResponseMetadata ResponseMetadata `json:"response_metadata,omitempty"`
}

// ConversationInfoResponse is the envelope of conversations.info.
type ConversationInfoResponse struct {
	OK      bool         `json:"ok"`
	Error   string       `json:"error,omitempty"`
	Channel Conversation `json:"channel"`
}

// Message is a single conversation history entry.
type Message struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
	Text string `json:"text"`
	TS   string `json:"ts"`
}

// HistoryResponse is the envelope of conversations.history.
type HistoryResponse struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error,omitempty"`
	Messages         []Message        `json:"messages"`
	HasMore          bool             `json:"has_more,omitempty"`
	ResponseMetadata ResponseMetadata `json:"response_metadata,omitempty"`
}

// User is a workspace member as returned by users.info.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name,omitempty"`
	IsBot    bool   `json:"is_bot,omitempty"`
}

// UserInfoResponse is the envelope of users.info.
type UserInfoResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	User  User   `json:"user"`
}

// AuthTestResponse is the envelope of auth.test, identifying the
// authenticated workspace and user.
type AuthTestResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	URL    string `json:"url,omitempty"`
	Team   string `json:"team,omitempty"`
	TeamID string `json:"team_id,omitempty"`
	User   string `json:"user,omitempty"`
	UserID string `json:"user_id,omitempty"`
}
