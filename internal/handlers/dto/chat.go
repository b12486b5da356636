package dto

// CreateGroupRequest создание группового чата
type CreateGroupRequest struct {
	Title     string   `json:"title" binding:"required"`
	MemberIDs []string `json:"member_ids"`
}

// DirectRequest личный чат с пользователем
type DirectRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AttachedRequest комната внешней сущности
type AttachedRequest struct {
	Kind  string `json:"kind" binding:"required"`
	ID    string `json:"id" binding:"required"`
	Title string `json:"title"`
}

type RenameRequest struct {
	Title string `json:"title" binding:"required"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}
