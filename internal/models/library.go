package models

// Tag is a group-scoped label used to curate posts into the library.
type Tag struct {
	ID        int64
	GroupID   int64
	Name      string
	CreatedAt int64
}

// Post is a short message. Only the fields the cascade delete and the tag
// library touch are modelled.
type Post struct {
	ID        int64
	GroupID   int64
	MemberID  int64
	Body      string
	Tag       string
	CreatedAt int64
}

// PostComment is a threaded comment on a post.
type PostComment struct {
	ID        int64
	PostID    int64
	MemberID  int64
	Body      string
	CreatedAt int64
}
