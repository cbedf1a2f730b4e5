package models

import "strings"

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser   SpeakerRole = "user"   // 用户角色。
	SpeakerSystem SpeakerRole = "system" // 系统角色。
	SpeakerModel  SpeakerRole = "model"  // 模型角色。
)

// Part 是消息的单个文本部分。
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content 包含了构成单个消息的多个部分。
type Content struct {
	Parts []*Part     `json:"parts,omitempty"`
	Role  SpeakerRole `json:"role,omitempty"`
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	Content     []Content `json:"content,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

// NewTextRequest 构造只包含一段用户文本的请求。
func NewTextRequest(prompt string, temperature float32) *GenerateContentRequest {
	return &GenerateContentRequest{
		Content: []Content{{
			Parts: []*Part{{Text: prompt}},
			Role:  SpeakerUser,
		}},
		Temperature: temperature,
	}
}

// Prompt 把请求中的全部文本按顺序拼接起来。
func (r *GenerateContentRequest) Prompt() string {
	var sb strings.Builder
	for _, c := range r.Content {
		for _, p := range c.Parts {
			if p == nil || p.Text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// GenerateContentResponse 定义了生成内容的响应结构。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`
	ModelVersion string    `json:"modelVersion,omitempty"`
}

// Text 返回响应中第一个候选内容的全部文本。
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Content[0].Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
