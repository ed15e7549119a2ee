// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jeranaias/pocketchat/internal/model"
	"github.com/jeranaias/pocketchat/internal/provider"
	"github.com/jeranaias/pocketchat/internal/store"
)

func TestSendMessageTemplateQuestion(t *testing.T) {
	svc, _, st, _ := newTestService(t)

	c, _ := svc.CreateContact("A", "", "", "")
	result, err := svc.SendMessage(context.Background(), c.ID, "今天天气怎么样？")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if result.Source != SourceTemplate {
		t.Errorf("source = %q, want template", result.Source)
	}
	want := "我收到了你的消息：“今天天气怎么样？”。 这是一个问题，我可以帮你解答。"
	if result.Reply.Content != want {
		t.Errorf("reply = %q\nwant    %q", result.Reply.Content, want)
	}

	history := st.ChatHistories()[c.ID]
	if len(history) != 2 {
		t.Fatalf("history = %+v, want user+assistant pair", history)
	}
	if history[0].Role != model.RoleUser || history[1].Role != model.RoleAssistant {
		t.Errorf("roles = %q, %q", history[0].Role, history[1].Role)
	}
}

func TestSendMessageTemplateExclamation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	c, _ := svc.CreateContact("A", "", "", "")
	result, err := svc.SendMessage(context.Background(), c.ID, "太棒了！")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	want := "我收到了你的消息：“太棒了！”。 听起来很有趣！"
	if result.Reply.Content != want {
		t.Errorf("reply = %q", result.Reply.Content)
	}
}

func TestSendMessageTemplatePlain(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	c, _ := svc.CreateContact("A", "", "", "")
	result, err := svc.SendMessage(context.Background(), c.ID, "早上好")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.Reply.Content != "我收到了你的消息：“早上好”。" {
		t.Errorf("reply = %q", result.Reply.Content)
	}
}

func TestSendMessagePersonaReply(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	c, _ := svc.CreateContact("小雨", "", "温柔体贴的朋友", "")
	result, err := svc.SendMessage(context.Background(), c.ID, "今天有点累")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	reply := result.Reply.Content
	if !strings.HasPrefix(reply, "作为小雨，") {
		t.Errorf("reply missing persona prefix: %q", reply)
	}
	if !strings.Contains(reply, " 我会温柔地回应你。") {
		t.Errorf("reply missing keyword clause: %q", reply)
	}
	if !strings.Contains(reply, " 关于“今天有点累”，") {
		t.Errorf("reply missing quoted message: %q", reply)
	}
	if !strings.HasSuffix(reply, "温柔体贴的朋友") {
		t.Errorf("reply missing persona excerpt: %q", reply)
	}
}

func TestTemplateReplyTruncatesLongMessage(t *testing.T) {
	contact := model.Contact{Name: "A", Personality: "专业"}
	long := strings.Repeat("长", 30)

	reply := templateReply(contact, long)
	if !strings.Contains(reply, " 关于“"+strings.Repeat("长", 20)+"...”，") {
		t.Errorf("message not truncated at 20 runes: %q", reply)
	}
}

func TestTemplateReplyTruncatesLongPersona(t *testing.T) {
	persona := strings.Repeat("设", 60)
	contact := model.Contact{Name: "A", Personality: persona}

	reply := templateReply(contact, "hi")
	if !strings.HasSuffix(reply, " "+strings.Repeat("设", 50)+"...") {
		t.Errorf("persona not truncated at 50 runes: %q", reply)
	}
}

// enableCustomModel wires a usable custom provider and assigns its model
// to the contact.
func enableCustomModel(t *testing.T, svc *Service, st *store.Store, contactID string) {
	t.Helper()
	if err := st.SaveProviderConfigs(map[string]model.ProviderConfig{
		provider.Custom: {Enabled: true, APIKey: "k", Endpoint: "https://llm.test/v1/chat/completions"},
	}); err != nil {
		t.Fatalf("SaveProviderConfigs: %v", err)
	}
	if err := st.SaveAvailableModels(map[string][]model.DiscoveredModel{
		provider.Custom: {{ID: "m1", Name: "M1", Provider: provider.Custom}},
	}); err != nil {
		t.Fatalf("SaveAvailableModels: %v", err)
	}
	if err := svc.AssignModel(contactID, "custom:m1"); err != nil {
		t.Fatalf("AssignModel: %v", err)
	}
}

func TestSendMessageProviderPath(t *testing.T) {
	svc, _, st, api := newTestService(t)
	api.reply = "来自模型的回复"

	c, _ := svc.CreateContact("小雨", "", "温柔", "")
	enableCustomModel(t, svc, st, c.ID)

	result, err := svc.SendMessage(context.Background(), c.ID, "你好")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.Source != SourceProvider {
		t.Errorf("source = %q, want provider", result.Source)
	}
	if result.Reply.Content != "来自模型的回复" {
		t.Errorf("reply = %q", result.Reply.Content)
	}
	if result.Notice != "" {
		t.Errorf("notice = %q, want empty on success", result.Notice)
	}

	// First turn: system prompt plus the new user message, no duplicates.
	if len(api.lastReq.Messages) != 2 {
		t.Fatalf("messages sent = %+v", api.lastReq.Messages)
	}
	if api.lastReq.Messages[0].Role != model.RoleSystem {
		t.Errorf("first message role = %q", api.lastReq.Messages[0].Role)
	}
	if !strings.Contains(api.lastReq.Messages[0].Content, "扮演角色：小雨") {
		t.Errorf("system prompt = %q", api.lastReq.Messages[0].Content)
	}
	if api.lastReq.Messages[1] != (provider.Message{Role: model.RoleUser, Content: "你好"}) {
		t.Errorf("user turn = %+v", api.lastReq.Messages[1])
	}
	if api.lastReq.ModelID != "m1" || api.lastReq.Provider != provider.Custom {
		t.Errorf("request routing = %+v", api.lastReq)
	}
}

func TestSendMessageProviderContextWindow(t *testing.T) {
	svc, _, st, api := newTestService(t)
	api.reply = "ok"

	c, _ := svc.CreateContact("A", "", "", "")
	enableCustomModel(t, svc, st, c.ID)

	// 8 sends leave 16 history turns; only the last 10 travel.
	for i := 0; i < 8; i++ {
		if _, err := svc.SendMessage(context.Background(), c.ID, "msg"); err != nil {
			t.Fatalf("SendMessage %d: %v", i, err)
		}
	}

	// system + 10 prior + new user turn
	if got := len(api.lastReq.Messages); got != 12 {
		t.Errorf("messages sent = %d, want 12", got)
	}
}

func TestSendMessageProviderFailureFallsBack(t *testing.T) {
	svc, _, st, api := newTestService(t)
	api.err = errors.New("boom")

	c, _ := svc.CreateContact("A", "", "", "")
	enableCustomModel(t, svc, st, c.ID)

	result, err := svc.SendMessage(context.Background(), c.ID, "hi")
	if err != nil {
		t.Fatalf("SendMessage must not surface provider errors: %v", err)
	}
	if result.Source != SourceTemplate {
		t.Errorf("source = %q, want template fallback", result.Source)
	}
	if result.Notice != "AI响应失败，使用模拟回复" {
		t.Errorf("notice = %q", result.Notice)
	}
	if api.calls != 1 {
		t.Errorf("provider calls = %d, want 1", api.calls)
	}

	// The user's message survives the failure.
	history := st.ChatHistories()[c.ID]
	if len(history) != 2 || history[0].Content != "hi" {
		t.Errorf("history = %+v", history)
	}
}

func TestSendMessageUnusableProviderSkipsCall(t *testing.T) {
	svc, _, st, api := newTestService(t)

	c, _ := svc.CreateContact("A", "", "", "")
	enableCustomModel(t, svc, st, c.ID)

	// Drop the key after assignment; the model still resolves but the
	// provider must not be called.
	if err := st.SaveProviderConfigs(map[string]model.ProviderConfig{
		provider.Custom: {Enabled: true, APIKey: "", Endpoint: "https://llm.test"},
	}); err != nil {
		t.Fatalf("SaveProviderConfigs: %v", err)
	}

	result, err := svc.SendMessage(context.Background(), c.ID, "hi")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.Source != SourceTemplate {
		t.Errorf("source = %q", result.Source)
	}
	if result.Notice != "自定义API未配置或未启用" {
		t.Errorf("notice = %q", result.Notice)
	}
	if api.calls != 0 {
		t.Errorf("provider called %d times, want 0", api.calls)
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.SendMessage(context.Background(), "missing", "hi"); !errors.Is(err, ErrContactNotFound) {
		t.Errorf("err = %v, want ErrContactNotFound", err)
	}

	c, _ := svc.CreateContact("A", "", "", "")
	if _, err := svc.SendMessage(context.Background(), c.ID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestSystemPrompt(t *testing.T) {
	got := systemPrompt(model.Contact{Name: "小雨", Personality: "温柔"})
	want := "你是一个AI助手，扮演角色：小雨。角色设定：温柔。请根据这个设定来回应用户。"
	if got != want {
		t.Errorf("systemPrompt = %q", got)
	}

	if got := systemPrompt(model.Contact{Name: "A"}); got != "你是一个有帮助的AI助手。" {
		t.Errorf("generic prompt = %q", got)
	}
}
