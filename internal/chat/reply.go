// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/provider"
	"github.com/jeranaias/pocketchat/internal/util"
)

// ===== REPLY GENERATION =====

const (
	// SourceProvider marks replies produced by a remote model.
	SourceProvider = "provider"
	// SourceTemplate marks replies synthesized locally.
	SourceTemplate = "template"

	// historyWindow is the number of prior turns sent to a provider as
	// conversation context.
	historyWindow = 10
)

// SendResult describes the outcome of one send: the stored message pair,
// which path produced the reply, and an optional user-facing notice when
// the provider path was skipped or failed.
type SendResult struct {
	UserMessage model.ChatMessage `json:"userMessage"`
	Reply       model.ChatMessage `json:"reply"`
	Source      string            `json:"source"`
	Notice      string            `json:"notice,omitempty"`
}

// SendMessage appends the user's message to the contact's history, then
// generates a reply. When the contact resolves to a custom model with a
// usable provider config, the provider is asked; any provider failure falls
// back to the local template responder rather than surfacing an error. The
// user's message is persisted before any network I/O happens, so a provider
// failure never loses input.
func (s *Service) SendMessage(ctx context.Context, contactID, content string) (SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return SendResult{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contact, err := s.findLocked(contactID)
	if err != nil {
		return SendResult{}, err
	}

	histories := s.store.ChatHistories()
	prior := histories[contactID]

	userMsg := model.ChatMessage{
		ID:      model.NewID("msg"),
		Role:    model.RoleUser,
		Content: content,
		Time:    model.NowMillis(),
	}
	histories[contactID] = append(prior, userMsg)
	if err := s.store.SaveChatHistories(histories); err != nil {
		return SendResult{}, err
	}

	replyText, source, notice := s.generateReply(ctx, contact, prior, content)

	reply := model.ChatMessage{
		ID:      model.NewID("msg"),
		Role:    model.RoleAssistant,
		Content: replyText,
		Time:    model.NowMillis(),
	}
	histories[contactID] = append(histories[contactID], reply)
	if err := s.store.SaveChatHistories(histories); err != nil {
		return SendResult{}, err
	}

	return SendResult{UserMessage: userMsg, Reply: reply, Source: source, Notice: notice}, nil
}

// generateReply decides between the provider path and the template path.
// prior is the history before the just-sent message.
func (s *Service) generateReply(ctx context.Context, contact model.Contact, prior []model.ChatMessage, content string) (text, source, notice string) {
	key := s.catalog.ResolveModelKey(contact.ID)
	spec, ok := s.catalog.AllModels()[key]
	if !ok || spec.Type != model.ModelTypeCustom {
		return templateReply(contact, content), SourceTemplate, ""
	}

	cfg := s.store.ProviderConfigs()[spec.Provider]
	if !cfg.Usable() {
		s.log.WithField("provider", spec.Provider).Warn("provider not usable, using template reply")
		return templateReply(contact, content), SourceTemplate, "自定义API未配置或未启用"
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = provider.DefaultEndpoints[spec.Provider].Chat
	}

	reply, err := s.api.SendChat(ctx, provider.Request{
		Provider: spec.Provider,
		APIKey:   cfg.APIKey,
		Endpoint: endpoint,
		ModelID:  spec.ModelID,
		Messages: buildMessages(contact, prior, content),
	})
	if err != nil {
		s.log.WithField("provider", spec.Provider).WithError(err).Warn("provider call failed, using template reply")
		return templateReply(contact, content), SourceTemplate, "AI响应失败，使用模拟回复"
	}
	return reply, SourceProvider, ""
}

// buildMessages assembles the provider payload: the contact's system
// prompt, up to historyWindow prior turns, then the new user turn.
func buildMessages(contact model.Contact, prior []model.ChatMessage, content string) []provider.Message {
	msgs := make([]provider.Message, 0, historyWindow+2)
	msgs = append(msgs, provider.Message{Role: model.RoleSystem, Content: systemPrompt(contact)})

	recent := prior
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	for _, m := range recent {
		role := model.RoleUser
		if m.Role == model.RoleAssistant {
			role = model.RoleAssistant
		}
		msgs = append(msgs, provider.Message{Role: role, Content: m.Content})
	}
	return append(msgs, provider.Message{Role: model.RoleUser, Content: content})
}

func systemPrompt(contact model.Contact) string {
	if contact.HasPersonality() {
		return fmt.Sprintf("你是一个AI助手，扮演角色：%s。角色设定：%s。请根据这个设定来回应用户。",
			contact.Name, contact.Personality)
	}
	return "你是一个有帮助的AI助手。"
}

// ===== TEMPLATE RESPONDER =====

// templateReply synthesizes a local reply. Contacts without a personality
// get an echo with a punctuation-sensitive suffix; contacts with one get a
// persona-flavored reply quoting the message and the persona text.
func templateReply(contact model.Contact, content string) string {
	if !contact.HasPersonality() {
		reply := "我收到了你的消息：“" + content + "”。"
		if strings.ContainsAny(content, "？?") {
			reply += " 这是一个问题，我可以帮你解答。"
		} else if strings.ContainsAny(content, "!！") {
			reply += " 听起来很有趣！"
		}
		return reply
	}

	var b strings.Builder
	b.WriteString("作为" + contact.Name + "，")

	persona := strings.ToLower(contact.Personality)
	switch {
	case strings.Contains(persona, "温柔") || strings.Contains(persona, "体贴"):
		b.WriteString(" 我会温柔地回应你。")
	case strings.Contains(persona, "幽默") || strings.Contains(persona, "风趣"):
		b.WriteString(" 让我用幽默的方式回应！")
	case strings.Contains(persona, "专业") || strings.Contains(persona, "严谨"):
		b.WriteString(" 从专业角度分析，")
	}

	b.WriteString(" 关于“" + util.TruncateRunes(content, 20) + "”，")

	if runes := []rune(contact.Personality); len(runes) > 50 {
		b.WriteString(" " + string(runes[:50]) + "...")
	} else {
		b.WriteString(contact.Personality)
	}
	return b.String()
}
