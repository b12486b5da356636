package chat

import "errors"

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotMember          = errors.New("not a member of this chat")
	ErrAlreadyMember      = errors.New("already a member of this chat")
	ErrMessageDeleted     = errors.New("message is deleted")
	ErrRoomNotJoinable    = errors.New("chat is not a joinable room")
	ErrNotGroupChat       = errors.New("members can be added only to group chats")
	ErrAttachmentConflict = errors.New("entity already has a chat")
)
