package model

// Profile is a feed author or commenter
type Profile struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Post is a feed item as returned by the content API
type Post struct {
	ID           string   `json:"id"`
	AuthorID     string   `json:"author_id"`
	Text         string   `json:"text"`
	CreatedAt    string   `json:"created_at"`
	LikeCount    int      `json:"like_count"`
	CommentCount int      `json:"comment_count"`
	ShareCount   int      `json:"share_count"`
	Author       *Profile `json:"author,omitempty"`
}

// Comment is a reply on a post
type Comment struct {
	ID        string   `json:"id"`
	PostID    string   `json:"post_id"`
	UserID    string   `json:"user_id"`
	Text      string   `json:"text"`
	CreatedAt string   `json:"created_at"`
	Author    *Profile `json:"author,omitempty"`
}

// FeedPage is one page of the infinite-scroll feed
type FeedPage struct {
	Items      []Post  `json:"items"`
	NextCursor *string `json:"next_cursor"` // nil on the last page
}

// PostDetail is the post detail response
type PostDetail struct {
	Post               Post      `json:"post"`
	Comments           []Comment `json:"comments"`
	LikedByCurrentUser bool      `json:"liked_by_current_user"`
}

// InteractionResult is returned by like/share/comment mutations
type InteractionResult struct {
	Post        Post     `json:"post"`
	LikedByUser *bool    `json:"liked_by_user,omitempty"`
	NewComment  *Comment `json:"new_comment,omitempty"`
}
