package dto

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}
