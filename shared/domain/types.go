package domain

type (
	UserId      = string
	Email       = string
	CommunityId = string
	PollId      = string
	CommentId   = string
	JoinCode    = string

	PollQuestion = string
	PollOption   = string
	CommentText  = string
)
