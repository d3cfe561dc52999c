package domain

import "time"

type CommentCreationData struct {
	PollId   PollId
	Text     CommentText
	Author   User
	Disclose bool
}

type Comment struct {
	Id        CommentId   `json:"id"`
	PollId    PollId      `json:"pollId"`
	Content   CommentText `json:"content"`
	Disclosed bool        `json:"disclosed"`
	AuthorId  UserId      `json:"authorId,omitempty"` // set iff Disclosed
	CreatedAt time.Time   `json:"createdAt"`
}
