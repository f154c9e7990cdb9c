package model

// 书签内容类型
const (
	ContentTypeLink  = "link"
	ContentTypeText  = "text"
	ContentTypeAsset = "asset"
)

// Bookmark 表示 Hoarder 中的一条书签
type Bookmark struct {
	ID       string          `json:"id"`
	Title    *string         `json:"title"`
	Content  BookmarkContent `json:"content"`
	Archived bool            `json:"archived"`
}

// BookmarkContent is the type-dependent payload of a bookmark.
type BookmarkContent struct {
	Type        string  `json:"type"`
	URL         string  `json:"url,omitempty"`
	Title       *string `json:"title,omitempty"`
	HTMLContent *string `json:"htmlContent,omitempty"`
	Text        string  `json:"text,omitempty"`
}

// BookmarkPage 书签列表响应
type BookmarkPage struct {
	Bookmarks  []Bookmark `json:"bookmarks"`
	NextCursor *string    `json:"nextCursor"`
}

// DisplayTitle returns the bookmark title, falling back to the linked page
// title and finally the id.
func (b *Bookmark) DisplayTitle() string {
	if b.Title != nil && *b.Title != "" {
		return *b.Title
	}
	if b.Content.Type == ContentTypeLink && b.Content.Title != nil && *b.Content.Title != "" {
		return *b.Content.Title
	}
	return b.ID
}

// ReadableHTML 返回用于阅读和朗读的 HTML
func (b *Bookmark) ReadableHTML() string {
	if b.Content.Type != ContentTypeLink {
		return "Unsupported content type: " + b.Content.Type
	}
	if b.Content.HTMLContent == nil || *b.Content.HTMLContent == "" {
		return "No content"
	}
	return *b.Content.HTMLContent
}
